package pubsub

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	infrapubsub "github.com/smarthunt/realtime-service/infra/pubsub"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(
		func(factory infrapubsub.Factory, logger *slog.Logger) (*Bus, error) {
			pub, err := factory.BuildPublisher(infrapubsub.PublisherConfig{
				Exchange:     RealtimeExchange,
				ExchangeType: "fanout",
			})
			if err != nil {
				return nil, err
			}
			return NewBus(pub, logger), nil
		},
		fx.Annotate(
			func(b *Bus) Publisher { return b },
			fx.As(new(Publisher)),
		),
		func(factory infrapubsub.Factory, hub registry.Hubber, logger *slog.Logger) (*Relay, error) {
			sub, err := factory.BuildSubscriber(infrapubsub.SubscriberConfig{
				// One queue per node so every node sees every envelope.
				Queue:        "smarthunt.realtime.node." + uuid.NewString()[:8],
				Exchange:     RealtimeExchange,
				ExchangeType: "fanout",
				RoutingKey:   RealtimeTopic,
				Transient:    true,
			})
			if err != nil {
				return nil, err
			}
			return NewRelay(sub, hub, logger), nil
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, relay *Relay) {
		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				return relay.Run(ctx)
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)
