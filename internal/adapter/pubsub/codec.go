package pubsub

import (
	"encoding/json"
	"fmt"

	"github.com/smarthunt/realtime-service/internal/domain/event"
)

// wireEnvelope is the bus representation of an event envelope. The payload
// stays raw until the kind is known.
type wireEnvelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Group      string          `json:"group"`
	OccurredAt int64           `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func encodeEnvelope(ev *event.Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("pubsub: marshal payload: %w", err)
	}
	return json.Marshal(wireEnvelope{
		ID:         ev.ID,
		Kind:       ev.Kind.String(),
		Group:      ev.Group,
		OccurredAt: ev.OccurredAt,
		Payload:    payload,
	})
}

func decodeEnvelope(data []byte) (*event.Event, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("pubsub: decode envelope: %w", err)
	}

	kind := event.KindFromString(w.Kind)
	if kind == 0 {
		return nil, fmt.Errorf("pubsub: unknown event kind %q", w.Kind)
	}

	payload, err := decodePayload(kind, w.Payload)
	if err != nil {
		return nil, err
	}

	return &event.Event{
		ID:         w.ID,
		Kind:       kind,
		Group:      w.Group,
		Priority:   event.PriorityOf(kind),
		OccurredAt: w.OccurredAt,
		Payload:    payload,
	}, nil
}

// decodePayload maps the kind back to its concrete payload type, so the
// vocabulary stays a closed union on both sides of the broker.
func decodePayload(kind event.Kind, raw json.RawMessage) (any, error) {
	var target any
	switch kind {
	case event.ConnectionEstablished:
		target = &event.ConnectionEstablishedPayload{}
	case event.UnreadCount:
		target = &event.UnreadCountPayload{}
	case event.Notification:
		target = &event.NotificationPayload{}
	case event.ChatMessage:
		target = &event.ChatMessagePayload{}
	case event.BookingUpdate:
		target = &event.BookingUpdatePayload{}
	case event.MaintenanceUpdate:
		target = &event.MaintenanceUpdatePayload{}
	case event.Pong:
		target = &event.PongPayload{}
	case event.Error:
		target = &event.ErrorPayload{}
	case event.MarkReadResponse:
		target = &event.MarkReadResponsePayload{}
	case event.MarkAllReadResponse:
		target = &event.MarkAllReadResponsePayload{}
	default:
		return nil, fmt.Errorf("pubsub: no payload type for kind %d", kind)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("pubsub: decode %s payload: %w", kind, err)
	}
	return target, nil
}
