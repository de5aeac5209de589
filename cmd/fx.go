package cmd

import (
	"github.com/smarthunt/realtime-service/config"
	infrapubsub "github.com/smarthunt/realtime-service/infra/pubsub"
	httpserver "github.com/smarthunt/realtime-service/infra/server/http"
	adapterpubsub "github.com/smarthunt/realtime-service/internal/adapter/pubsub"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	amqphandler "github.com/smarthunt/realtime-service/internal/handler/amqp"
	"github.com/smarthunt/realtime-service/internal/service"
	"github.com/smarthunt/realtime-service/internal/store"
	"go.uber.org/fx"
)

// NewApp assembles the service graph. Construction order is driven by the
// dependency graph, not by the module list below.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideResolver,
			infrapubsub.NewFactory,
		),

		store.Module,
		registry.Module,
		adapterpubsub.Module,
		service.Module,
		amqphandler.Module,
		httpserver.Module,
	)
}
