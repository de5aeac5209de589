package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/smarthunt/realtime-service/internal/store"
	"github.com/sony/gobreaker"
)

// BreakerStore wraps the notification store with a circuit breaker so a
// struggling database fails fast on the websocket hot path instead of piling
// up blocked sessions. A tripped breaker surfaces as a domain failure
// (success:false / error frame), never as a dropped connection.
type BreakerStore struct {
	next NotificationStore
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerStore(next NotificationStore, logger *slog.Logger) *BreakerStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "notification-store",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

func (b *BreakerStore) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.UnreadCount(ctx, userID)
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

func (b *BreakerStore) MarkRead(ctx context.Context, userID, notificationID int64) (bool, error) {
	res, err := b.cb.Execute(func() (any, error) {
		ok, err := b.next.MarkRead(ctx, userID, notificationID)
		return ok, err
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

func (b *BreakerStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.MarkAllRead(ctx, userID)
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

func (b *BreakerStore) CreateNotification(ctx context.Context, n *store.Notification) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.CreateNotification(ctx, n)
	})
	return err
}

func (b *BreakerStore) CreateMessage(ctx context.Context, m *store.ChatMessage) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.CreateMessage(ctx, m)
	})
	return err
}
