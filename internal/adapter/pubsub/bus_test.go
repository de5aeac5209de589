package pubsub

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/smarthunt/realtime-service/internal/domain/event"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	"github.com/stretchr/testify/require"
)

// The in-process broker wires Bus and Relay exactly the way the server does,
// minus the AMQP transport.
func newTestBusRelay(t *testing.T, hub registry.Hubber) *Bus {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	broker := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	t.Cleanup(func() { _ = broker.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	relay := NewRelay(broker, hub, logger)
	require.NoError(t, relay.Run(ctx))

	return NewBus(broker, logger)
}

func TestBusDeliversThroughRelay(t *testing.T) {
	hub := registry.NewHub(registry.WithSendTimeout(50 * time.Millisecond))
	t.Cleanup(hub.Shutdown)

	conn := registry.NewConnector(context.Background(), 7, 16)
	hub.Register(conn)

	bus := newTestBusRelay(t, hub)

	ev := event.New(event.Notification, registry.UserGroup(7), &event.NotificationPayload{
		Title:            "Booking Request Approved",
		NotificationType: "booking",
	})
	require.NoError(t, bus.Publish(context.Background(), ev))

	select {
	case got := <-conn.Recv():
		require.Equal(t, ev.ID, got.ID)
		require.Equal(t, event.Notification, got.Kind)
		payload, ok := got.Payload.(*event.NotificationPayload)
		require.True(t, ok)
		require.Equal(t, "Booking Request Approved", payload.Title)
	case <-time.After(time.Second):
		t.Fatal("event never crossed the bus")
	}
}

func TestBusRejectsNilEvent(t *testing.T) {
	hub := registry.NewHub()
	t.Cleanup(hub.Shutdown)

	bus := newTestBusRelay(t, hub)
	require.Error(t, bus.Publish(context.Background(), nil))
}

func TestRelaySkipsGroupsWithoutLocalMembers(t *testing.T) {
	hub := registry.NewHub(registry.WithSendTimeout(50 * time.Millisecond))
	t.Cleanup(hub.Shutdown)

	local := registry.NewConnector(context.Background(), 7, 16)
	hub.Register(local)

	bus := newTestBusRelay(t, hub)

	// Nobody on this node belongs to user:99; the envelope is dropped here.
	require.NoError(t, bus.Publish(context.Background(),
		event.New(event.Notification, registry.UserGroup(99), &event.NotificationPayload{Title: "elsewhere"})))

	select {
	case ev := <-local.Recv():
		t.Fatalf("unrelated event leaked to local connection: %s", ev.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}
