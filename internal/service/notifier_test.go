package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/smarthunt/realtime-service/internal/domain/event"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	"github.com/smarthunt/realtime-service/internal/service/dto"
	"github.com/smarthunt/realtime-service/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu            sync.Mutex
	notifications []*store.Notification
	messages      []*store.ChatMessage
	createErr     error
}

func (f *fakeStore) UnreadCount(context.Context, int64) (int64, error)    { return 0, nil }
func (f *fakeStore) MarkRead(context.Context, int64, int64) (bool, error) { return true, nil }
func (f *fakeStore) MarkAllRead(context.Context, int64) (int64, error)    { return 0, nil }

func (f *fakeStore) CreateNotification(_ context.Context, n *store.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = int64(len(f.notifications) + 1)
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeStore) CreateMessage(_ context.Context, m *store.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = int64(len(f.messages) + 1)
	f.messages = append(f.messages, m)
	return nil
}

type fakeBus struct {
	mu         sync.Mutex
	published  []*event.Event
	publishErr error
}

func (f *fakeBus) Publish(_ context.Context, ev *event.Event) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ev)
	return nil
}

func (f *fakeBus) byKindAndGroup(kind event.Kind, group string) []*event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*event.Event
	for _, ev := range f.published {
		if ev.Kind == kind && ev.Group == group {
			out = append(out, ev)
		}
	}
	return out
}

type fakeEnricher struct {
	names map[int64]string
}

func (f *fakeEnricher) Username(_ context.Context, userID int64) (string, error) {
	if name, ok := f.names[userID]; ok {
		return name, nil
	}
	return "", errors.New("no such user")
}

func newTestNotifier() (*Notifier, *fakeStore, *fakeBus) {
	st := &fakeStore{}
	bus := &fakeBus{}
	enricher := &fakeEnricher{names: map[int64]string{7: "alice", 3: "bob"}}
	return NewNotifier(st, bus, enricher, testLogger()), st, bus
}

func TestBookingCreatedNotifiesLandlord(t *testing.T) {
	n, st, bus := newTestNotifier()

	booking := &dto.BookingV1{
		BookingID:     5,
		Status:        "pending",
		PropertyID:    42,
		PropertyTitle: "Sea View Apartment",
		TenantID:      7,
		LandlordID:    3,
	}
	require.NoError(t, n.BookingCreated(context.Background(), booking))

	require.Len(t, st.notifications, 1)
	record := st.notifications[0]
	require.Equal(t, int64(3), record.UserID)
	require.Equal(t, "New Booking Request", record.Title)
	require.Contains(t, record.Body, "alice")
	require.Contains(t, record.Body, "Sea View Apartment")
	require.Equal(t, store.TypeBooking, record.NotificationType)

	// The landlord gets the notification push plus the state broadcast; the
	// tenant only the state broadcast.
	require.Len(t, bus.byKindAndGroup(event.Notification, registry.UserGroup(3)), 1)
	require.Len(t, bus.byKindAndGroup(event.BookingUpdate, registry.UserGroup(3)), 1)
	require.Len(t, bus.byKindAndGroup(event.BookingUpdate, registry.UserGroup(7)), 1)
	require.Empty(t, bus.byKindAndGroup(event.Notification, registry.UserGroup(7)))
}

func TestBookingStatusChangedRouting(t *testing.T) {
	cases := []struct {
		status    string
		recipient int64
	}{
		{"approved", 7},
		{"declined", 7},
		{"checked_in", 3},
		{"completed", 3},
		{"cancelled", 3},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			n, st, bus := newTestNotifier()

			booking := &dto.BookingV1{
				BookingID:     5,
				Status:        tc.status,
				PropertyID:    42,
				PropertyTitle: "Sea View Apartment",
				TenantID:      7,
				LandlordID:    3,
			}
			require.NoError(t, n.BookingStatusChanged(context.Background(), booking))

			require.Len(t, st.notifications, 1)
			require.Equal(t, tc.recipient, st.notifications[0].UserID)
			require.Len(t, bus.byKindAndGroup(event.BookingUpdate, registry.UserGroup(7)), 1)
			require.Len(t, bus.byKindAndGroup(event.BookingUpdate, registry.UserGroup(3)), 1)
		})
	}
}

func TestBookingStatusChangedUnknownStatusOnlyBroadcasts(t *testing.T) {
	n, st, bus := newTestNotifier()

	booking := &dto.BookingV1{BookingID: 5, Status: "haunted", TenantID: 7, LandlordID: 3}
	require.NoError(t, n.BookingStatusChanged(context.Background(), booking))

	require.Empty(t, st.notifications)
	require.Len(t, bus.byKindAndGroup(event.BookingUpdate, registry.UserGroup(7)), 1)
}

func TestSendChatMessageFansOut(t *testing.T) {
	n, st, bus := newTestNotifier()

	propertyID := int64(42)
	record, err := n.SendChatMessage(context.Background(), 7, 3, &propertyID, "is it still free?")
	require.NoError(t, err)
	require.NotZero(t, record.ID)
	require.Len(t, st.messages, 1)

	require.Len(t, bus.byKindAndGroup(event.ChatMessage, registry.UserGroup(7)), 1)
	require.Len(t, bus.byKindAndGroup(event.ChatMessage, registry.UserGroup(3)), 1)
	require.Len(t, bus.byKindAndGroup(event.ChatMessage, registry.TopicGroup(42)), 1)

	// Recipient also gets a preview notification.
	require.Len(t, st.notifications, 1)
	require.Equal(t, int64(3), st.notifications[0].UserID)
	require.Contains(t, st.notifications[0].Body, "alice")
}

func TestMessageCreatedWithoutPropertySkipsTopic(t *testing.T) {
	n, _, bus := newTestNotifier()

	err := n.MessageCreated(context.Background(), &dto.MessageV1{
		MessageID: 1, SenderID: 7, RecipientID: 3, Content: "hi",
	})
	require.NoError(t, err)

	for _, ev := range bus.published {
		require.False(t, strings.HasPrefix(ev.Group, "topic:"), "no topic publish expected")
	}
}

func TestMessageCreatedPreviewTruncated(t *testing.T) {
	n, st, _ := newTestNotifier()

	long := strings.Repeat("a", 150)
	err := n.MessageCreated(context.Background(), &dto.MessageV1{
		MessageID: 1, SenderID: 7, RecipientID: 3, Content: long,
	})
	require.NoError(t, err)

	require.Len(t, st.notifications, 1)
	require.Contains(t, st.notifications[0].Data, strings.Repeat("a", 100)+"...")
	require.NotContains(t, st.notifications[0].Data, strings.Repeat("a", 101))
}

func TestMessageCreatedPreviewKeepsRunesIntact(t *testing.T) {
	n, st, _ := newTestNotifier()

	// 150 two-byte runes: a byte-indexed cut would land mid-character.
	long := strings.Repeat("é", 150)
	err := n.MessageCreated(context.Background(), &dto.MessageV1{
		MessageID: 1, SenderID: 7, RecipientID: 3, Content: long,
	})
	require.NoError(t, err)

	require.Len(t, st.notifications, 1)
	require.True(t, utf8.ValidString(st.notifications[0].Data))
	require.Contains(t, st.notifications[0].Data, strings.Repeat("é", 100)+"...")
	require.NotContains(t, st.notifications[0].Data, strings.Repeat("é", 101))
}

func TestMaintenanceCreatedNotifiesLandlord(t *testing.T) {
	n, st, bus := newTestNotifier()

	err := n.MaintenanceChanged(context.Background(), &dto.MaintenanceV1{
		MaintenanceID: 9,
		Action:        "created",
		Status:        "open",
		PropertyID:    42,
		PropertyTitle: "Sea View Apartment",
		TenantID:      7,
		LandlordID:    3,
		Description:   "leaky faucet",
	})
	require.NoError(t, err)

	require.Len(t, st.notifications, 1)
	require.Equal(t, int64(3), st.notifications[0].UserID)
	require.Equal(t, store.TypeMaintenance, st.notifications[0].NotificationType)
	require.Len(t, bus.byKindAndGroup(event.MaintenanceUpdate, registry.UserGroup(7)), 1)
	require.Len(t, bus.byKindAndGroup(event.MaintenanceUpdate, registry.UserGroup(3)), 1)
}

func TestMaintenanceStatusChangeNotifiesTenant(t *testing.T) {
	n, st, _ := newTestNotifier()

	err := n.MaintenanceChanged(context.Background(), &dto.MaintenanceV1{
		MaintenanceID: 9,
		Action:        "status_changed",
		Status:        "resolved",
		PropertyTitle: "Sea View Apartment",
		TenantID:      7,
		LandlordID:    3,
	})
	require.NoError(t, err)

	require.Len(t, st.notifications, 1)
	require.Equal(t, int64(7), st.notifications[0].UserID)
	require.Contains(t, st.notifications[0].Body, "resolved")
}

func TestReviewCreated(t *testing.T) {
	n, st, _ := newTestNotifier()

	err := n.ReviewCreated(context.Background(), &dto.ReviewV1{
		ReviewID:      4,
		PropertyTitle: "Sea View Apartment",
		TenantID:      7,
		LandlordID:    3,
		Rating:        5,
	})
	require.NoError(t, err)

	require.Len(t, st.notifications, 1)
	require.Equal(t, int64(3), st.notifications[0].UserID)
	require.Contains(t, st.notifications[0].Body, "5-star")
}

func TestNotifyPersistsBeforePublish(t *testing.T) {
	n, st, bus := newTestNotifier()
	st.createErr = errors.New("disk full")

	err := n.FavoriteCreated(context.Background(), &dto.FavoriteV1{
		PropertyTitle: "Sea View Apartment", TenantID: 7, LandlordID: 3,
	})
	require.Error(t, err)
	require.Empty(t, bus.published, "nothing may be pushed when the record was not persisted")
}

func TestPublishFailureDoesNotFailNotify(t *testing.T) {
	n, st, bus := newTestNotifier()
	bus.publishErr = errors.New("broker down")

	err := n.FavoriteCreated(context.Background(), &dto.FavoriteV1{
		PropertyTitle: "Sea View Apartment", TenantID: 7, LandlordID: 3,
	})
	require.NoError(t, err, "delivery is best-effort once the record exists")
	require.Len(t, st.notifications, 1)
}

func TestUsernameFallback(t *testing.T) {
	n, st, _ := newTestNotifier()

	err := n.ReviewCreated(context.Background(), &dto.ReviewV1{
		PropertyTitle: "Sea View Apartment",
		TenantID:      999, // unknown to the enricher
		LandlordID:    3,
		Rating:        2,
	})
	require.NoError(t, err)
	require.Contains(t, st.notifications[0].Body, "user 999")
}
