package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	adapterpubsub "github.com/smarthunt/realtime-service/internal/adapter/pubsub"
	"github.com/smarthunt/realtime-service/internal/auth"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	"github.com/smarthunt/realtime-service/internal/service"
	"github.com/smarthunt/realtime-service/internal/service/dto"
	"github.com/smarthunt/realtime-service/internal/store"
	"github.com/stretchr/testify/require"
)

const testSecret = "ws-test-secret"

type memStore struct {
	mu            sync.Mutex
	users         map[int64]*store.User
	unread        map[int64]int64
	notifications []*store.Notification
	messages      []*store.ChatMessage
}

func newMemStore() *memStore {
	return &memStore{
		users: map[int64]*store.User{
			7: {ID: 7, Username: "alice"},
			3: {ID: 3, Username: "bob"},
		},
		unread: map[int64]int64{},
	}
}

func (m *memStore) GetUser(_ context.Context, id int64) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UnreadCount(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unread[userID], nil
}

func (m *memStore) MarkRead(_ context.Context, userID, notificationID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == notificationID && n.UserID == userID && !n.IsRead {
			n.IsRead = true
			m.unread[userID]--
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	marked := m.unread[userID]
	m.unread[userID] = 0
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return marked, nil
}

func (m *memStore) CreateNotification(_ context.Context, n *store.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.notifications) + 1)
	m.notifications = append(m.notifications, n)
	m.unread[n.UserID]++
	return nil
}

func (m *memStore) CreateMessage(_ context.Context, msg *store.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memStore) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// harness wires the full delivery path behind an httptest server, with the
// in-process broker standing in for AMQP.
type harness struct {
	srv      *httptest.Server
	hub      *registry.Hub
	store    *memStore
	notifier *service.Notifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	hub := registry.NewHub(registry.WithSendTimeout(100 * time.Millisecond))
	t.Cleanup(hub.Shutdown)

	st := newMemStore()
	deliverer := service.NewDeliveryService(hub, 64)
	resolver := auth.NewJWTResolver(testSecret, st)

	broker := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	t.Cleanup(func() { _ = broker.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	relay := adapterpubsub.NewRelay(broker, hub, logger)
	require.NoError(t, relay.Run(ctx))

	bus := adapterpubsub.NewBus(broker, logger)
	notifier := service.NewNotifier(st, bus, service.NewProfileEnricher(st), logger)

	handler := NewWSHandler(logger, resolver, deliverer, hub, notifier, st)

	router := chi.NewRouter()
	router.Get("/ws/notifications", handler.ServeNotifications)
	router.Get("/ws/chat/{propertyID}", handler.ServeChat)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &harness{srv: srv, hub: hub, store: st, notifier: notifier}
}

func (h *harness) wsURL(path, token string) string {
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + path
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func signToken(t *testing.T, userID int64) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func dial(t *testing.T, h *harness, path string, userID int64) *websocket.Conn {
	t.Helper()
	sock, _, err := websocket.DefaultDialer.Dial(h.wsURL(path, signToken(t, userID)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sock.Close() })
	return sock
}

func readFrame(t *testing.T, sock *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, sock.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := sock.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

// awaitFrame reads frames until one of the wanted type arrives. Interleaved
// frames of other types (unread count pushes and the like) are skipped.
func awaitFrame(t *testing.T, sock *websocket.Conn, typ string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		frame := readFrame(t, sock)
		if frame["type"] == typ {
			return frame
		}
	}
	t.Fatalf("no %q frame within 10 reads", typ)
	return nil
}

// skipGreeting consumes connection_established and the initial unread count.
func skipGreeting(t *testing.T, sock *websocket.Conn) {
	t.Helper()
	require.Equal(t, "connection_established", readFrame(t, sock)["type"])
	require.Equal(t, "unread_count", readFrame(t, sock)["type"])
}

func sendFrame(t *testing.T, sock *websocket.Conn, frame any) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, sock.WriteMessage(websocket.TextMessage, data))
}

func TestHandshakeRejectedWithoutToken(t *testing.T) {
	h := newHarness(t)

	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL("/ws/notifications", ""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A refused handshake must leave no trace in the registry.
	require.Zero(t, h.hub.Stats().TotalConnections)
}

func TestHandshakeRejectedForUnknownUser(t *testing.T) {
	h := newHarness(t)

	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL("/ws/notifications", signToken(t, 999)), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, h.hub.Stats().TotalConnections)
}

func TestGreetingFrames(t *testing.T) {
	h := newHarness(t)
	h.store.unread[7] = 4

	sock := dial(t, h, "/ws/notifications", 7)

	established := readFrame(t, sock)
	require.Equal(t, "connection_established", established["type"])
	require.EqualValues(t, 7, established["user_id"])
	require.Equal(t, "alice", established["username"])

	unread := readFrame(t, sock)
	require.Equal(t, "unread_count", unread["type"])
	require.EqualValues(t, 4, unread["count"])
}

func TestPingPong(t *testing.T) {
	h := newHarness(t)
	sock := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, sock)

	sendFrame(t, sock, map[string]any{"type": "ping"})
	pong := awaitFrame(t, sock, "pong")
	require.NotEmpty(t, pong["timestamp"])
}

func TestMarkRead(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.CreateNotification(context.Background(),
		&store.Notification{UserID: 7, Title: "t"}))

	sock := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, sock)

	sendFrame(t, sock, map[string]any{"type": "mark_read", "notification_id": 1})
	resp := awaitFrame(t, sock, "mark_read_response")
	require.EqualValues(t, 1, resp["notification_id"])
	require.Equal(t, true, resp["success"])
}

func TestMarkReadScopedToSessionUser(t *testing.T) {
	h := newHarness(t)
	// Notification belongs to bob; alice's session must not flip it.
	require.NoError(t, h.store.CreateNotification(context.Background(),
		&store.Notification{UserID: 3, Title: "bob's"}))

	sock := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, sock)

	sendFrame(t, sock, map[string]any{"type": "mark_read", "notification_id": 1})
	resp := awaitFrame(t, sock, "mark_read_response")
	require.Equal(t, false, resp["success"])

	count, err := h.store.UnreadCount(context.Background(), 3)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestMarkAllRead(t *testing.T) {
	h := newHarness(t)
	h.store.unread[7] = 3

	sock := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, sock)

	sendFrame(t, sock, map[string]any{"type": "mark_all_read"})
	resp := awaitFrame(t, sock, "mark_all_read_response")
	require.EqualValues(t, 3, resp["marked_count"])
}

func TestGetUnreadCount(t *testing.T) {
	h := newHarness(t)
	h.store.unread[7] = 2

	sock := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, sock)

	sendFrame(t, sock, map[string]any{"type": "get_unread_count"})
	resp := awaitFrame(t, sock, "unread_count")
	require.EqualValues(t, 2, resp["count"])
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	h := newHarness(t)
	sock := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, sock)

	require.NoError(t, sock.WriteMessage(websocket.TextMessage, []byte("{not json")))
	errFrame := awaitFrame(t, sock, "error")
	require.Equal(t, "Invalid JSON format", errFrame["message"])

	// Still alive.
	sendFrame(t, sock, map[string]any{"type": "ping"})
	awaitFrame(t, sock, "pong")
}

func TestInvalidRequestAnswered(t *testing.T) {
	h := newHarness(t)
	sock := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, sock)

	// mark_read without its required notification_id.
	sendFrame(t, sock, map[string]any{"type": "mark_read"})
	errFrame := awaitFrame(t, sock, "error")
	require.Equal(t, "Invalid request", errFrame["message"])
}

func TestSessionIgnoresUnknownFrameType(t *testing.T) {
	h := newHarness(t)
	sock := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, sock)

	sendFrame(t, sock, map[string]any{"type": "interpretive_dance"})
	sendFrame(t, sock, map[string]any{"type": "ping"})

	// The unknown frame yields nothing; the next reply is the pong.
	frame := readFrame(t, sock)
	require.Equal(t, "pong", frame["type"])
}

func TestNotificationsEndpointIgnoresChatFrames(t *testing.T) {
	h := newHarness(t)
	sock := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, sock)

	sendFrame(t, sock, map[string]any{"type": "chat_message", "receiver_id": 3, "message": "off-channel"})
	sendFrame(t, sock, map[string]any{"type": "ping"})

	// Chat sends only work on the chat endpoint; elsewhere the frame is
	// dropped like any unknown type, with nothing persisted or fanned out.
	require.Equal(t, "pong", readFrame(t, sock)["type"])
	require.Zero(t, h.store.messageCount())
}

func TestNotificationPushWithUnreadFollowup(t *testing.T) {
	h := newHarness(t)
	sock := dial(t, h, "/ws/notifications", 3)
	skipGreeting(t, sock)

	require.NoError(t, h.notifier.FavoriteCreated(context.Background(), &dto.FavoriteV1{
		PropertyID:    42,
		PropertyTitle: "Sea View Apartment",
		TenantID:      7,
		LandlordID:    3,
	}))

	push := awaitFrame(t, sock, "notification")
	require.Equal(t, "Property Favorited", push["title"])
	require.Contains(t, push["body"], "alice")

	// Every delivered notification is chased by a refreshed tally.
	tally := awaitFrame(t, sock, "unread_count")
	require.EqualValues(t, 1, tally["count"])
}

func TestBookingScenarioEndToEnd(t *testing.T) {
	h := newHarness(t)

	tenant := dial(t, h, "/ws/notifications", 7)
	skipGreeting(t, tenant)
	landlord := dial(t, h, "/ws/notifications", 3)
	skipGreeting(t, landlord)

	booking := &dto.BookingV1{
		BookingID:     5,
		Status:        "pending",
		PropertyID:    42,
		PropertyTitle: "Sea View Apartment",
		TenantID:      7,
		LandlordID:    3,
	}
	require.NoError(t, h.notifier.BookingCreated(context.Background(), booking))

	// The landlord gets the persisted notification (followed by the unread
	// tally) and then the state broadcast.
	notif := readFrame(t, landlord)
	require.Equal(t, "notification", notif["type"])
	require.Equal(t, "booking", notif["notification_type"])
	data, ok := notif["data"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 7, data["tenant_id"])
	require.Equal(t, "unread_count", readFrame(t, landlord)["type"])
	require.Equal(t, "booking_update", readFrame(t, landlord)["type"])

	// The tenant sees only the state broadcast, never a notification.
	first := readFrame(t, tenant)
	require.Equal(t, "booking_update", first["type"])
	require.Equal(t, "created", first["action"])

	booking.Status = "approved"
	require.NoError(t, h.notifier.BookingStatusChanged(context.Background(), booking))

	// Now the roles flip: the tenant is notified, the landlord only sees
	// the broadcast.
	approved := readFrame(t, tenant)
	require.Equal(t, "notification", approved["type"])
	require.Contains(t, approved["body"], "approved")
	require.Equal(t, "unread_count", readFrame(t, tenant)["type"])
	require.Equal(t, "booking_update", readFrame(t, tenant)["type"])

	require.Equal(t, "booking_update", readFrame(t, landlord)["type"])
}

func TestChatBetweenTwoSessions(t *testing.T) {
	h := newHarness(t)

	alice := dial(t, h, "/ws/chat/42", 7)
	skipGreeting(t, alice)
	bob := dial(t, h, "/ws/notifications", 3)
	skipGreeting(t, bob)

	sendFrame(t, alice, map[string]any{
		"type":        "chat_message",
		"receiver_id": 3,
		"message":     "when can I view the flat?",
	})

	got := awaitFrame(t, bob, "chat_message")
	require.EqualValues(t, 7, got["sender_id"])
	require.Equal(t, "alice", got["sender_name"])
	require.Equal(t, "when can I view the flat?", got["content"])
	require.EqualValues(t, 42, got["property_id"])

	// The sender's own group gets the echo too.
	echo := awaitFrame(t, alice, "chat_message")
	require.Equal(t, "when can I view the flat?", echo["content"])

	// And the recipient is left a preview notification.
	notif := awaitFrame(t, bob, "notification")
	require.Equal(t, "New Message", notif["title"])
}
