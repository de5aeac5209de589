package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smarthunt/realtime-service/internal/auth"
	"github.com/smarthunt/realtime-service/internal/domain/event"
	"github.com/smarthunt/realtime-service/internal/domain/model"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	wsmarshaller "github.com/smarthunt/realtime-service/internal/handler/marshaller/ws"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	replyTimeout   = time.Second
)

// session pumps one authenticated connection through its lifecycle:
// registered on construction, reading frames until the socket dies, then a
// single unregister and a bounded best-effort flush.
type session struct {
	sock     *websocket.Conn
	conn     registry.Connector
	identity auth.Identity

	// propertyID is set on chat-endpoint sessions, scoping chat sends.
	propertyID *int64

	h *WSHandler

	closeOnce sync.Once
}

func newSession(sock *websocket.Conn, conn registry.Connector, identity auth.Identity, propertyID *int64, h *WSHandler) *session {
	return &session{
		sock:       sock,
		conn:       conn,
		identity:   identity,
		propertyID: propertyID,
		h:          h,
	}
}

// run drives the session until the socket closes. The greeting frames are
// written directly, before the pumps start, so a freshly opened client gets
// its state without polling. By the time run returns the connection is
// unregistered and both pumps have exited, so the caller may recycle the
// connector.
func (s *session) run(ctx context.Context) {
	if err := s.greet(ctx); err != nil {
		s.teardown()
		s.sock.Close()
		return
	}

	// The recv channel is captured once: after teardown closes the
	// connector, the pump drains whatever was already enqueued and exits.
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.writePump(s.conn.Recv())
	}()

	s.readLoop(ctx)
	s.teardown()
	<-pumpDone
}

// greet sends connection_established plus the current unread tally.
func (s *session) greet(ctx context.Context) error {
	if err := s.writeFrame(event.New(event.ConnectionEstablished, "", &event.ConnectionEstablishedPayload{
		UserID:    s.identity.UserID,
		Username:  s.identity.Username,
		Timestamp: event.Timestamp(),
	})); err != nil {
		return err
	}

	count, err := s.h.notifications.UnreadCount(ctx, s.identity.UserID)
	if err != nil {
		s.h.logger.Warn("unread count unavailable", "user_id", s.identity.UserID, "error", err)
		return nil
	}
	return s.writeFrame(event.New(event.UnreadCount, "", &event.UnreadCountPayload{Count: count}))
}

func (s *session) writeFrame(ev *event.Event) error {
	data, err := wsmarshaller.MarshalEvent(ev)
	if err != nil {
		return err
	}
	s.sock.SetWriteDeadline(time.Now().Add(writeWait))
	return s.sock.WriteMessage(websocket.TextMessage, data)
}

// readLoop consumes inbound frames until the socket errors or closes.
func (s *session) readLoop(ctx context.Context) {
	s.sock.SetReadLimit(maxMessageSize)
	s.sock.SetReadDeadline(time.Now().Add(pongWait))
	s.sock.SetPongHandler(func(string) error {
		s.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.h.logger.Warn("ws read failed", "user_id", s.identity.UserID, "error", err)
			}
			return
		}
		s.handleFrame(ctx, data)
	}
}

// handleFrame dispatches one client request. Malformed payloads and domain
// failures are answered on the socket; they never close the connection.
// Unrecognized request types are silently ignored.
func (s *session) handleFrame(ctx context.Context, data []byte) {
	frame, err := model.DecodeFrame(data)
	if err != nil {
		s.reply(event.New(event.Error, "", &event.ErrorPayload{Message: "Invalid JSON format"}))
		return
	}
	if err := frame.Validate(); err != nil {
		s.reply(event.New(event.Error, "", &event.ErrorPayload{Message: "Invalid request"}))
		return
	}

	switch frame.Type {
	case model.FramePing:
		s.reply(event.New(event.Pong, "", &event.PongPayload{Timestamp: event.Timestamp()}))

	case model.FrameMarkRead:
		ok, err := s.h.notifications.MarkRead(ctx, s.identity.UserID, frame.NotificationID)
		if err != nil {
			s.h.logger.Error("mark read failed", "user_id", s.identity.UserID, "error", err)
			ok = false
		}
		s.reply(event.New(event.MarkReadResponse, "", &event.MarkReadResponsePayload{
			NotificationID: frame.NotificationID,
			Success:        ok,
		}))

	case model.FrameMarkAllRead:
		count, err := s.h.notifications.MarkAllRead(ctx, s.identity.UserID)
		if err != nil {
			s.h.logger.Error("mark all read failed", "user_id", s.identity.UserID, "error", err)
			s.reply(event.New(event.Error, "", &event.ErrorPayload{Message: "Internal server error"}))
			return
		}
		s.reply(event.New(event.MarkAllReadResponse, "", &event.MarkAllReadResponsePayload{MarkedCount: count}))

	case model.FrameGetUnreadCount:
		count, err := s.h.notifications.UnreadCount(ctx, s.identity.UserID)
		if err != nil {
			s.h.logger.Error("unread count failed", "user_id", s.identity.UserID, "error", err)
			s.reply(event.New(event.Error, "", &event.ErrorPayload{Message: "Internal server error"}))
			return
		}
		s.reply(event.New(event.UnreadCount, "", &event.UnreadCountPayload{Count: count}))

	case model.FrameChatMessage:
		// Chat sends are scoped to chat-endpoint sessions; the notifications
		// endpoint drops the frame like any other unrecognized type.
		if s.propertyID == nil {
			return
		}
		if _, err := s.h.notifier.SendChatMessage(ctx, s.identity.UserID, frame.ReceiverID, s.propertyID, frame.Message); err != nil {
			s.h.logger.Error("chat send failed", "user_id", s.identity.UserID, "error", err)
			s.reply(event.New(event.Error, "", &event.ErrorPayload{Message: "Internal server error"}))
		}

	default:
		// Unknown types produce no response: quiet protocol extensibility.
	}
}

// reply enqueues a frame through the connector so the write pump stays the
// only socket writer. Replies share the delivery queue's FIFO order.
func (s *session) reply(ev *event.Event) {
	s.conn.Send(ev, replyTimeout)
}

// writePump serializes outbound delivery. It exits on socket write failure
// or when the connector signals done; buffered events drain first, each
// under its own write deadline, which bounds the teardown grace period.
func (s *session) writePump(recv <-chan *event.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.sock.Close()
	}()

	for {
		select {
		case <-s.conn.Done():
			s.flush(recv)
			s.sock.SetWriteDeadline(time.Now().Add(writeWait))
			s.sock.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case ev := <-recv:
			if err := s.writeFrame(ev); err != nil {
				s.h.logger.Warn("ws send failed", "user_id", s.identity.UserID, "error", err)
				s.teardown()
				return
			}
			if ev.Kind == event.Notification {
				s.pushUnreadCount()
			}

		case <-ticker.C:
			s.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.teardown()
				return
			}
		}
	}
}

// flush writes whatever was enqueued before the close signal.
func (s *session) flush(recv <-chan *event.Event) {
	for {
		select {
		case ev := <-recv:
			if err := s.writeFrame(ev); err != nil {
				return
			}
		default:
			return
		}
	}
}

// pushUnreadCount follows a delivered notification with a refreshed tally.
func (s *session) pushUnreadCount() {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	count, err := s.h.notifications.UnreadCount(ctx, s.identity.UserID)
	if err != nil {
		return
	}
	if err := s.writeFrame(event.New(event.UnreadCount, "", &event.UnreadCountPayload{Count: count})); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		s.h.logger.Warn("unread push failed", "user_id", s.identity.UserID, "error", err)
	}
}

// teardown unregisters exactly once. Unregistering closes the connector,
// whose done signal lets the write pump flush and release the socket.
func (s *session) teardown() {
	s.closeOnce.Do(func() {
		s.h.deliverer.Unsubscribe(s.conn.GetID())
	})
}
