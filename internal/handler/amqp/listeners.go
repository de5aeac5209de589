package amqp

import (
	"context"

	"github.com/smarthunt/realtime-service/internal/service/dto"
)

// Thin adapters from intake payloads to the Notifier. Business rules
// (recipients, bodies, persisted records) live in the service layer.

func (h *EventHandler) OnBookingCreatedV1(ctx context.Context, raw *dto.BookingV1) error {
	return h.notifier.BookingCreated(ctx, raw)
}

func (h *EventHandler) OnBookingStatusChangedV1(ctx context.Context, raw *dto.BookingV1) error {
	return h.notifier.BookingStatusChanged(ctx, raw)
}

func (h *EventHandler) OnMessageCreatedV1(ctx context.Context, raw *dto.MessageV1) error {
	return h.notifier.MessageCreated(ctx, raw)
}

func (h *EventHandler) OnMaintenanceChangedV1(ctx context.Context, raw *dto.MaintenanceV1) error {
	return h.notifier.MaintenanceChanged(ctx, raw)
}

func (h *EventHandler) OnReviewCreatedV1(ctx context.Context, raw *dto.ReviewV1) error {
	return h.notifier.ReviewCreated(ctx, raw)
}

func (h *EventHandler) OnFavoriteCreatedV1(ctx context.Context, raw *dto.FavoriteV1) error {
	return h.notifier.FavoriteCreated(ctx, raw)
}
