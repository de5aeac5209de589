package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the fixed outbound vocabulary. Adding a frame type means
// adding a constant here plus a payload struct, so every switch over Kind is
// a compile-time-visible dispatch table.
type Kind int16

const (
	ConnectionEstablished Kind = iota + 1
	UnreadCount
	Notification
	ChatMessage
	BookingUpdate
	MaintenanceUpdate
	Pong
	Error
	MarkReadResponse
	MarkAllReadResponse
)

var kindNames = map[Kind]string{
	ConnectionEstablished: "connection_established",
	UnreadCount:           "unread_count",
	Notification:          "notification",
	ChatMessage:           "chat_message",
	BookingUpdate:         "booking_update",
	MaintenanceUpdate:     "maintenance_update",
	Pong:                  "pong",
	Error:                 "error",
	MarkReadResponse:      "mark_read_response",
	MarkAllReadResponse:   "mark_all_read_response",
}

// String returns the wire discriminator for the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// KindFromString resolves a wire discriminator back to a Kind.
// Returns 0 for unknown names.
func KindFromString(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return 0
}

type Priority int32

const (
	PriorityLow    Priority = 10
	PriorityNormal Priority = 20
	PriorityHigh   Priority = 30
)

// PriorityOf classifies kinds for the backpressure policy: business events
// survive a saturated mailbox longer than housekeeping frames.
func PriorityOf(k Kind) Priority {
	switch k {
	case Notification, ChatMessage, BookingUpdate, MaintenanceUpdate:
		return PriorityHigh
	case Pong, UnreadCount:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Event is the immutable envelope flowing through the hub and the bus.
// Group is the target group key at publish time; Payload is one of the
// *Payload structs matching Kind.
type Event struct {
	ID         string
	Kind       Kind
	Group      string
	Priority   Priority
	OccurredAt int64
	Payload    any
}

// New builds an envelope for the given kind and target group. The priority is
// derived from the kind; OccurredAt is stamped at construction.
func New(kind Kind, group string, payload any) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Group:      group,
		Priority:   PriorityOf(kind),
		OccurredAt: time.Now().UnixMilli(),
		Payload:    payload,
	}
}

// Timestamp renders the current time in the wire format clients expect.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
