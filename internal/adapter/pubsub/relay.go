package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/smarthunt/realtime-service/internal/domain/event"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
)

// Relay is this node's end of the fan-out bus: it consumes every envelope
// from the realtime exchange and hands it to the local hub. Nodes without a
// member of the target group simply miss the cell and drop the envelope.
type Relay struct {
	subscriber message.Subscriber
	hub        registry.Hubber
	logger     *slog.Logger
}

func NewRelay(subscriber message.Subscriber, hub registry.Hubber, logger *slog.Logger) *Relay {
	return &Relay{subscriber: subscriber, hub: hub, logger: logger}
}

// Run consumes until ctx is cancelled. Undecodable envelopes are acked and
// dropped; they would poison the queue otherwise.
func (r *Relay) Run(ctx context.Context) error {
	msgs, err := r.subscriber.Subscribe(ctx, RealtimeTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			r.handle(msg)
		}
	}()
	return nil
}

func (r *Relay) handle(msg *message.Message) {
	defer msg.Ack()

	ev, err := decodeEnvelope(msg.Payload)
	if err != nil {
		r.logger.Error("relay drop", "msg_id", msg.UUID, "error", err)
		return
	}

	if !r.hub.Broadcast(ev.Group, ev) && ev.Priority >= event.PriorityHigh {
		r.logger.Debug("no local members", "group", ev.Group, "kind", ev.Kind.String())
	}
}
