package service

import (
	"context"

	"github.com/smarthunt/realtime-service/internal/store"
)

// NotificationStore is the slice of the persisted-record CRUD the realtime
// core consumes. The primary backend owns the schema; this service only
// counts, flips and appends.
type NotificationStore interface {
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	CreateNotification(ctx context.Context, n *store.Notification) error
	CreateMessage(ctx context.Context, m *store.ChatMessage) error
}

// Interface guard for the concrete store.
var _ NotificationStore = (*store.Store)(nil)
