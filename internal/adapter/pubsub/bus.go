package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/smarthunt/realtime-service/internal/domain/event"
)

const (
	// RealtimeExchange fans every envelope out to all service nodes; each
	// node holds a transient queue and filters by its own registry.
	RealtimeExchange = "smarthunt.realtime"
	// RealtimeTopic is the single topic envelopes travel on.
	RealtimeTopic = "realtime.events"
)

// Publisher is the group fan-out contract producers depend on. Publish is
// best-effort relative to the persisted record: implementations log broker
// failures and return them, but callers are expected not to propagate them
// into domain request handling.
type Publisher interface {
	Publish(ctx context.Context, ev *event.Event) error
}

// Bus publishes envelopes onto the realtime exchange. Delivery to live
// connections happens in each node's Relay, including the local one, so
// there is exactly one delivery path regardless of where the member lives.
type Bus struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewBus(publisher message.Publisher, logger *slog.Logger) *Bus {
	return &Bus{publisher: publisher, logger: logger}
}

func (b *Bus) Publish(ctx context.Context, ev *event.Event) error {
	if ev == nil {
		return fmt.Errorf("bus: cannot publish nil event")
	}

	data, err := encodeEnvelope(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("group", ev.Group)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(RealtimeTopic, msg); err != nil {
		b.logger.Error("bus publish failed", "group", ev.Group, "kind", ev.Kind.String(), "error", err)
		return fmt.Errorf("bus: publish to %s: %w", ev.Group, err)
	}
	return nil
}
