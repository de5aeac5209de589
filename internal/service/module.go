package service

import (
	"log/slog"

	"github.com/smarthunt/realtime-service/config"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	"github.com/smarthunt/realtime-service/internal/store"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		fx.Annotate(
			func(hub registry.Hubber, cfg *config.Config) *DeliveryService {
				return NewDeliveryService(hub, cfg.Hub.SessionBuffer)
			},
			fx.As(new(Deliverer)),
		),
		func(s *store.Store, logger *slog.Logger) NotificationStore {
			return NewBreakerStore(s, logger)
		},
		fx.Annotate(
			func(s *store.Store) *ProfileEnricher { return NewProfileEnricher(s) },
			fx.As(new(Enricher)),
		),
		NewNotifier,
	),

	// Decorate the enricher with logging without touching lookup logic.
	fx.Decorate(func(orig Enricher, logger *slog.Logger) Enricher {
		return &enricherMiddleware{
			next:   orig,
			logger: logger,
		}
	}),
)
