package lp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/smarthunt/realtime-service/internal/auth"
	"github.com/smarthunt/realtime-service/internal/domain/event"
	wsmarshaller "github.com/smarthunt/realtime-service/internal/handler/marshaller/ws"
	"github.com/smarthunt/realtime-service/internal/service"
)

const (
	pollTimeout = 30 * time.Second
	batchLimit  = 15
)

// LPHandler is the long-polling fallback for clients that cannot hold a
// websocket. A poll is a short-lived subscription: it joins the user group,
// waits for one event (or times out) and drains a small batch.
type LPHandler struct {
	resolver  auth.Resolver
	deliverer service.Deliverer
}

func NewLPHandler(resolver auth.Resolver, deliverer service.Deliverer) *LPHandler {
	return &LPHandler{resolver: resolver, deliverer: deliverer}
}

func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	identity, err := h.resolver.Resolve(r.Context(), r.URL.Query().Get("token"))
	if err != nil || identity.UserID != userID {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.deliverer.Subscribe(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to subscribe", http.StatusInternalServerError)
		return
	}
	// The poll is this connector's only user; once it is unregistered no
	// cell can still be delivering to it, so recycling is safe.
	defer conn.Release()
	defer h.deliverer.Unsubscribe(conn.GetID())

	recv := conn.Recv()
	var events []*event.Event

	select {
	case <-r.Context().Done():
		return

	case <-conn.Done():
		w.WriteHeader(http.StatusNoContent)
		return

	case <-time.After(pollTimeout):
		w.WriteHeader(http.StatusNoContent)
		return

	case ev := <-recv:
		events = append(events, ev)

		// Drain whatever else is already buffered so the client needs
		// fewer round trips.
	drainLoop:
		for range batchLimit {
			select {
			case nextEv := <-recv:
				events = append(events, nextEv)
			default:
				break drainLoop
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(marshalBatch(events))
}

func marshalBatch(events []*event.Event) []byte {
	out := []byte{'['}
	written := 0
	for _, ev := range events {
		frame, err := wsmarshaller.MarshalEvent(ev)
		if err != nil {
			continue
		}
		if written > 0 {
			out = append(out, ',')
		}
		out = append(out, frame...)
		written++
	}
	return append(out, ']')
}
