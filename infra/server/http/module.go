package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smarthunt/realtime-service/config"
	"github.com/smarthunt/realtime-service/internal/handler/lp"
	"github.com/smarthunt/realtime-service/internal/handler/ws"
	"go.uber.org/fx"
)

var Module = fx.Module("http",
	fx.Provide(
		ws.NewWSHandler,
		lp.NewLPHandler,
		NewRouter,
		func(cfg *config.Config, router *chi.Mux) *http.Server {
			return NewServer(cfg.HTTP.Address, router)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, srv *http.Server, logger *slog.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					logger.Info("http server listening", "addr", srv.Addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("http server failed", "error", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}),
)
