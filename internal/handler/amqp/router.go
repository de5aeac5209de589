package amqp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	infrapubsub "github.com/smarthunt/realtime-service/infra/pubsub"
	"github.com/smarthunt/realtime-service/internal/service"
)

const (
	// PlatformEventsExchange carries domain transitions published by the
	// primary backend (bookings, messaging, reviews, maintenance).
	PlatformEventsExchange = "smarthunt.events"

	TopicBookingCreated       = "booking.created.v1"
	TopicBookingStatusChanged = "booking.status_changed.v1"
	TopicMessageCreated       = "message.created.v1"
	TopicMaintenanceChanged   = "maintenance.status_changed.v1"
	TopicReviewCreated        = "review.created.v1"
	TopicFavoriteCreated      = "favorite.created.v1"

	// IntakeQueuePrefix names shared durable queues: all nodes compete on
	// the same queue so each platform event is processed exactly once
	// cluster-wide (fan-out to nodes happens later, on the realtime
	// exchange).
	IntakeQueuePrefix = "smarthunt-realtime.intake.v1"
	PoisonTopic       = "smarthunt-realtime.intake.v1.poison"
)

// EventHandler consumes platform events and turns them into notifications
// and realtime pushes via the Notifier.
type EventHandler struct {
	notifier *service.Notifier
	logger   *slog.Logger
}

func NewEventHandler(notifier *service.Notifier, logger *slog.Logger) *EventHandler {
	return &EventHandler{notifier: notifier, logger: logger}
}

// RegisterHandlers wires the table of platform topics into the router with
// the shared middleware chain.
func (h *EventHandler) RegisterHandlers(router *message.Router, factory infrapubsub.Factory, poisonPub message.Publisher) error {
	poison, err := middleware.PoisonQueue(poisonPub, PoisonTopic)
	if err != nil {
		return fmt.Errorf("poison queue setup: %w", err)
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"on_booking_created", TopicBookingCreated, Bind(h, h.OnBookingCreatedV1)},
		{"on_booking_status_changed", TopicBookingStatusChanged, Bind(h, h.OnBookingStatusChangedV1)},
		{"on_message_created", TopicMessageCreated, Bind(h, h.OnMessageCreatedV1)},
		{"on_maintenance_changed", TopicMaintenanceChanged, Bind(h, h.OnMaintenanceChangedV1)},
		{"on_review_created", TopicReviewCreated, Bind(h, h.OnReviewCreatedV1)},
		{"on_favorite_created", TopicFavoriteCreated, Bind(h, h.OnFavoriteCreatedV1)},
	}

	for _, c := range configs {
		sub, err := factory.BuildSubscriber(infrapubsub.SubscriberConfig{
			Queue:        fmt.Sprintf("%s.%s", IntakeQueuePrefix, c.name),
			Exchange:     PlatformEventsExchange,
			ExchangeType: "topic",
			RoutingKey:   c.topic,
		})
		if err != nil {
			return err
		}

		router.AddConsumerHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			NewRetryMiddleware().Middleware,
			poison,
			middleware.NewThrottle(100, time.Second).Middleware,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("platform event pipeline ready", "exchange", PlatformEventsExchange)
	return nil
}
