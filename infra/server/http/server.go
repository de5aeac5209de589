// Package httpserver exposes the service's HTTP surface: the websocket
// endpoints, the long-poll fallback and the operational probes.
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	"github.com/smarthunt/realtime-service/internal/handler/lp"
	"github.com/smarthunt/realtime-service/internal/handler/ws"
)

func NewRouter(wsHandler *ws.WSHandler, lpHandler *lp.LPHandler, hub registry.Hubber, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/ws/notifications", wsHandler.ServeNotifications)
	r.Get("/ws/chat/{propertyID}", wsHandler.ServeChat)
	r.Get("/poll/{userID}", lpHandler.Poll)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(hub.Stats()); err != nil {
			logger.Error("stats encode failed", "error", err)
		}
	})

	return r
}

func NewServer(addr string, router *chi.Mux) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
