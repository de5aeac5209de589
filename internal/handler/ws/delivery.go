package ws

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/smarthunt/realtime-service/internal/auth"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	"github.com/smarthunt/realtime-service/internal/service"
)

// WSHandler owns the two websocket endpoints. Authentication happens before
// the upgrade: a bad token is refused at the HTTP layer and never touches
// the registry.
type WSHandler struct {
	logger        *slog.Logger
	resolver      auth.Resolver
	deliverer     service.Deliverer
	hub           registry.Hubber
	notifier      *service.Notifier
	notifications service.NotificationStore
	upgrader      websocket.Upgrader
}

func NewWSHandler(
	logger *slog.Logger,
	resolver auth.Resolver,
	deliverer service.Deliverer,
	hub registry.Hubber,
	notifier *service.Notifier,
	notifications service.NotificationStore,
) *WSHandler {
	return &WSHandler{
		logger:        logger,
		resolver:      resolver,
		deliverer:     deliverer,
		hub:           hub,
		notifier:      notifier,
		notifications: notifications,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

// ServeNotifications handles /ws/notifications: the connection joins only
// the caller's user group.
func (h *WSHandler) ServeNotifications(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, nil)
}

// ServeChat handles /ws/chat/{propertyID}: the connection joins the caller's
// user group plus the per-listing topic group.
func (h *WSHandler) ServeChat(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.ParseInt(chi.URLParam(r, "propertyID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid property id", http.StatusBadRequest)
		return
	}
	h.serve(w, r, &propertyID)
}

func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, propertyID *int64) {
	identity, err := h.resolver.Resolve(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.logger.Info("handshake refused", "reason", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}

	conn, err := h.deliverer.Subscribe(r.Context(), identity.UserID)
	if err != nil {
		sock.Close()
		return
	}
	if propertyID != nil {
		h.hub.Join(conn.GetID(), registry.TopicGroup(*propertyID))
	}

	s := newSession(sock, conn, identity, propertyID, h)
	connID := conn.GetID()
	h.logger.Info("ws opened", "user_id", identity.UserID, "conn_id", connID)
	s.run(r.Context())

	// run returns with the connection unregistered and both pumps joined,
	// so the handle can go back to the pool.
	conn.Release()
	h.logger.Info("ws closed", "user_id", identity.UserID, "conn_id", connID)
}
