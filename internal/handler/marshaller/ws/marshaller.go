// Package wsmarshaller renders event envelopes into the flat client wire
// format: payload fields at the top level next to a "type" discriminator.
package wsmarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/smarthunt/realtime-service/internal/domain/event"
)

// MarshalEvent maps the closed event union onto wire frames. An envelope
// whose payload doesn't match its kind is a programming error and is
// reported, not silently skipped.
func MarshalEvent(ev *event.Event) ([]byte, error) {
	typ := ev.Kind.String()

	switch p := ev.Payload.(type) {
	case *event.ConnectionEstablishedPayload:
		return wrap(typ, p)
	case *event.UnreadCountPayload:
		return wrap(typ, p)
	case *event.NotificationPayload:
		return wrap(typ, p)
	case *event.ChatMessagePayload:
		return wrap(typ, p)
	case *event.BookingUpdatePayload:
		return wrap(typ, p)
	case *event.MaintenanceUpdatePayload:
		return wrap(typ, p)
	case *event.PongPayload:
		return wrap(typ, p)
	case *event.ErrorPayload:
		return wrap(typ, p)
	case *event.MarkReadResponsePayload:
		return wrap(typ, p)
	case *event.MarkAllReadResponsePayload:
		return wrap(typ, p)
	default:
		return nil, fmt.Errorf("wsmarshaller: no wire shape for kind %q", typ)
	}
}

// wrap flattens the payload next to the discriminator. The payload is
// marshalled first so its json tags stay authoritative.
func wrap(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"] = json.RawMessage(fmt.Sprintf("%q", typ))

	return json.Marshal(fields)
}
