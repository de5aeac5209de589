package amqp

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	infrapubsub "github.com/smarthunt/realtime-service/infra/pubsub"
	"go.uber.org/fx"
)

var Module = fx.Module("amqp",
	fx.Provide(
		NewEventHandler,
		func(wmLogger watermill.LoggerAdapter) (*message.Router, error) {
			return message.NewRouter(message.RouterConfig{}, wmLogger)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, router *message.Router, handler *EventHandler, factory infrapubsub.Factory, logger *slog.Logger) error {
		poisonPub, err := factory.BuildPublisher(infrapubsub.PublisherConfig{
			Exchange:     PlatformEventsExchange,
			ExchangeType: "topic",
		})
		if err != nil {
			return err
		}
		if err := handler.RegisterHandlers(router, factory, poisonPub); err != nil {
			return err
		}

		runCtx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := router.Run(runCtx); err != nil {
						logger.Error("event router stopped", "error", err)
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return router.Close()
			},
		})
		return nil
	}),
)
