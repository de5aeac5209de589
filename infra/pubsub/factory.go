// Package pubsub builds watermill publishers and subscribers for the broker
// driver named in configuration: a RabbitMQ topology for multi-node
// deployments, or the in-process gochannel driver for single-node runs and
// tests.
package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/smarthunt/realtime-service/config"
)

// PublisherConfig describes the exchange a publisher writes into. The
// watermill topic doubles as the routing key.
type PublisherConfig struct {
	Exchange     string
	ExchangeType string // "topic" or "fanout"
}

// SubscriberConfig describes a consumer queue bound to an exchange.
type SubscriberConfig struct {
	Queue        string
	Exchange     string
	ExchangeType string
	RoutingKey   string
	Transient    bool // per-node queues that should die with the process
}

// Factory hides the broker driver behind a uniform build surface.
type Factory interface {
	BuildPublisher(cfg PublisherConfig) (message.Publisher, error)
	BuildSubscriber(cfg SubscriberConfig) (message.Subscriber, error)
}

// NewFactory selects the driver from configuration.
func NewFactory(cfg *config.Config, logger watermill.LoggerAdapter) (Factory, error) {
	switch cfg.Broker.Driver {
	case config.DriverAMQP:
		return &amqpFactory{url: cfg.Broker.URL, logger: logger}, nil
	case config.DriverGoChannel:
		return NewChannelFactory(logger), nil
	default:
		return nil, fmt.Errorf("pubsub: unknown broker driver %q", cfg.Broker.Driver)
	}
}

type amqpFactory struct {
	url    string
	logger watermill.LoggerAdapter
}

func (f *amqpFactory) amqpConfig(exchange, exchangeType string, sub *SubscriberConfig) amqp.Config {
	cfg := amqp.NewDurablePubSubConfig(f.url, nil)
	cfg.Exchange.GenerateName = func(string) string { return exchange }
	cfg.Exchange.Type = exchangeType
	cfg.Publish.GenerateRoutingKey = func(topic string) string { return topic }

	if sub != nil {
		cfg.Queue.GenerateName = func(string) string { return sub.Queue }
		cfg.QueueBind.GenerateRoutingKey = func(string) string { return sub.RoutingKey }
		if sub.Transient {
			cfg.Queue.Durable = false
			cfg.Queue.AutoDelete = true
		}
	}
	return cfg
}

func (f *amqpFactory) BuildPublisher(cfg PublisherConfig) (message.Publisher, error) {
	return amqp.NewPublisher(f.amqpConfig(cfg.Exchange, cfg.ExchangeType, nil), f.logger)
}

func (f *amqpFactory) BuildSubscriber(cfg SubscriberConfig) (message.Subscriber, error) {
	return amqp.NewSubscriber(f.amqpConfig(cfg.Exchange, cfg.ExchangeType, &cfg), f.logger)
}

// ChannelFactory serves publishers and subscribers off one shared in-process
// gochannel, so everything published in the process is visible to every
// subscriber of the same topic. Exchange and queue settings are ignored.
type ChannelFactory struct {
	ch *gochannel.GoChannel
}

func NewChannelFactory(logger watermill.LoggerAdapter) *ChannelFactory {
	return &ChannelFactory{
		ch: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger),
	}
}

func (f *ChannelFactory) BuildPublisher(PublisherConfig) (message.Publisher, error) {
	return f.ch, nil
}

func (f *ChannelFactory) BuildSubscriber(SubscriberConfig) (message.Subscriber, error) {
	return f.ch, nil
}
