package amqp

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
)

// DomainHandler is the functional signature for platform-event business
// logic: a decoded payload in, an error out (nil acks, non-nil retries).
type DomainHandler[T any] func(ctx context.Context, payload *T) error

// Bind connects watermill to a domain handler, adding panic recovery and
// poison-pill protection so one bad message never kills the consumer.
func Bind[T any](h *EventHandler, fn DomainHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("handler panic recovered",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
			}
		}()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			// Ack: an undecodable payload will never decode on retry.
			h.logger.Error("decode failed", "err", err, "msg_id", msg.UUID)
			return nil
		}

		// Non-nil error nacks the message and triggers the retry policy.
		return fn(msg.Context(), payload)
	}
}
