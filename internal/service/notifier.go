package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/smarthunt/realtime-service/internal/adapter/pubsub"
	"github.com/smarthunt/realtime-service/internal/domain/event"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
	"github.com/smarthunt/realtime-service/internal/service/dto"
	"github.com/smarthunt/realtime-service/internal/store"
	"golang.org/x/sync/errgroup"
)

// Notifier converts platform state changes into persisted notifications and
// realtime envelopes. The notification row is always written before the
// publish, so a crash between the two steps costs a push, never state.
type Notifier struct {
	store    NotificationStore
	bus      pubsub.Publisher
	enricher Enricher
	logger   *slog.Logger
}

func NewNotifier(store NotificationStore, bus pubsub.Publisher, enricher Enricher, logger *slog.Logger) *Notifier {
	return &Notifier{store: store, bus: bus, enricher: enricher, logger: logger}
}

// notify persists a notification for the user and pushes it to their group.
// Publish failures are logged and swallowed: delivery is best-effort relative
// to the persisted record.
func (n *Notifier) notify(ctx context.Context, userID int64, title, body, notificationType string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("notify: encode data: %w", err)
	}

	record := &store.Notification{
		UserID:           userID,
		Title:            title,
		Body:             body,
		NotificationType: notificationType,
		Data:             string(raw),
		CreatedAt:        time.Now(),
	}
	if err := n.store.CreateNotification(ctx, record); err != nil {
		return fmt.Errorf("notify: persist: %w", err)
	}

	ev := event.New(event.Notification, registry.UserGroup(userID), &event.NotificationPayload{
		Title:            title,
		Body:             body,
		NotificationType: notificationType,
		Data:             data,
		NotificationID:   record.ID,
		Timestamp:        event.Timestamp(),
	})
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.logger.Error("notification push failed", "user_id", userID, "notification_id", record.ID, "error", err)
	}
	return nil
}

// broadcast publishes one envelope per participant group concurrently.
func (n *Notifier) broadcast(ctx context.Context, userIDs []int64, kind event.Kind, payload any) {
	g, gCtx := errgroup.WithContext(ctx)
	for _, id := range userIDs {
		group := registry.UserGroup(id)
		g.Go(func() error {
			return n.bus.Publish(gCtx, event.New(kind, group, payload))
		})
	}
	if err := g.Wait(); err != nil {
		n.logger.Error("broadcast failed", "kind", kind.String(), "error", err)
	}
}

func (n *Notifier) username(ctx context.Context, userID int64) string {
	name, err := n.enricher.Username(ctx, userID)
	if err != nil {
		return fmt.Sprintf("user %d", userID)
	}
	return name
}

// BookingCreated notifies the landlord of a new booking request and
// broadcasts the booking state to both participants.
func (n *Notifier) BookingCreated(ctx context.Context, b *dto.BookingV1) error {
	tenantName := n.username(ctx, b.TenantID)

	err := n.notify(ctx, b.LandlordID,
		"New Booking Request",
		fmt.Sprintf("%s requested to book %s", tenantName, b.PropertyTitle),
		store.TypeBooking,
		map[string]any{
			"booking_id":     b.BookingID,
			"property_id":    b.PropertyID,
			"tenant_id":      b.TenantID,
			"status":         b.Status,
			"check_in_date":  b.CheckInDate,
			"check_out_date": b.CheckOutDate,
		})
	if err != nil {
		return err
	}

	n.broadcastBookingUpdate(ctx, b, "created")
	return nil
}

// bookingStatusMessages maps a booking status to the notification body its
// recipient sees.
var bookingStatusMessages = map[string]string{
	"approved":   "Great news! Your booking request for %s has been approved!",
	"declined":   "Your booking request for %s was declined.",
	"checked_in": "You have successfully checked in to %s. Enjoy your stay!",
	"completed":  "Your booking at %s has been completed. Thank you for choosing us!",
	"cancelled":  "Your booking for %s has been cancelled.",
}

// BookingStatusChanged routes the status notification: landlord decisions go
// to the tenant, tenant actions go to the landlord.
func (n *Notifier) BookingStatusChanged(ctx context.Context, b *dto.BookingV1) error {
	tmpl, known := bookingStatusMessages[b.Status]
	if known {
		var recipient int64
		switch b.Status {
		case "approved", "declined":
			recipient = b.TenantID
		case "checked_in", "completed", "cancelled":
			recipient = b.LandlordID
		}

		err := n.notify(ctx, recipient,
			"Booking Update",
			fmt.Sprintf(tmpl, b.PropertyTitle),
			store.TypeBooking,
			map[string]any{
				"booking_id":  b.BookingID,
				"property_id": b.PropertyID,
				"status":      b.Status,
				"tenant_id":   b.TenantID,
				"landlord_id": b.LandlordID,
			})
		if err != nil {
			return err
		}
	}

	n.broadcastBookingUpdate(ctx, b, b.Status)
	return nil
}

func (n *Notifier) broadcastBookingUpdate(ctx context.Context, b *dto.BookingV1, action string) {
	n.broadcast(ctx, []int64{b.TenantID, b.LandlordID}, event.BookingUpdate, &event.BookingUpdatePayload{
		BookingID:     b.BookingID,
		Action:        action,
		Status:        b.Status,
		PropertyID:    b.PropertyID,
		PropertyTitle: b.PropertyTitle,
		TenantID:      b.TenantID,
		LandlordID:    b.LandlordID,
		Timestamp:     event.Timestamp(),
	})
}

// SendChatMessage persists a message originated on a websocket and fans it
// out. Returns the stored record so the session can echo identifiers.
func (n *Notifier) SendChatMessage(ctx context.Context, senderID, recipientID int64, propertyID *int64, content string) (*store.ChatMessage, error) {
	record := &store.ChatMessage{
		SenderID:    senderID,
		RecipientID: recipientID,
		PropertyID:  propertyID,
		Content:     content,
		CreatedAt:   time.Now(),
	}
	if err := n.store.CreateMessage(ctx, record); err != nil {
		return nil, fmt.Errorf("chat send: persist: %w", err)
	}

	err := n.MessageCreated(ctx, &dto.MessageV1{
		MessageID:   record.ID,
		SenderID:    senderID,
		RecipientID: recipientID,
		PropertyID:  propertyID,
		Content:     content,
		CreatedAt:   record.CreatedAt.UTC().Format(time.RFC3339),
	})
	return record, err
}

// MessageCreated fans an already-persisted chat message out to both
// participants' user groups and the property chat topic, and leaves the
// recipient a notification with a content preview.
func (n *Notifier) MessageCreated(ctx context.Context, m *dto.MessageV1) error {
	senderName := n.username(ctx, m.SenderID)

	payload := &event.ChatMessagePayload{
		MessageID:   m.MessageID,
		SenderID:    m.SenderID,
		SenderName:  senderName,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Timestamp:   m.CreatedAt,
		PropertyID:  m.PropertyID,
	}

	n.broadcast(ctx, []int64{m.SenderID, m.RecipientID}, event.ChatMessage, payload)
	if m.PropertyID != nil {
		topic := registry.TopicGroup(*m.PropertyID)
		if err := n.bus.Publish(ctx, event.New(event.ChatMessage, topic, payload)); err != nil {
			n.logger.Error("topic push failed", "group", topic, "error", err)
		}
	}

	return n.notify(ctx, m.RecipientID,
		"New Message",
		fmt.Sprintf("You have a new message from %s", senderName),
		store.TypeMessage,
		map[string]any{
			"message_id":      m.MessageID,
			"sender_id":       m.SenderID,
			"sender_name":     senderName,
			"property_id":     m.PropertyID,
			"content_preview": preview(m.Content, 100),
		})
}

var maintenanceStatusMessages = map[string]string{
	"in_progress": "Your maintenance request for %s is now in progress.",
	"resolved":    "Your maintenance request for %s has been resolved.",
	"open":        "Your maintenance request for %s is open.",
}

// MaintenanceChanged notifies the landlord on creation and the tenant on
// status changes, then broadcasts the update to both.
func (n *Notifier) MaintenanceChanged(ctx context.Context, m *dto.MaintenanceV1) error {
	if m.Action == "created" {
		err := n.notify(ctx, m.LandlordID,
			"New Maintenance Request",
			fmt.Sprintf("Maintenance request for %s: %s", m.PropertyTitle, preview(m.Description, 100)),
			store.TypeMaintenance,
			map[string]any{
				"maintenance_id": m.MaintenanceID,
				"property_id":    m.PropertyID,
				"tenant_id":      m.TenantID,
				"status":         m.Status,
			})
		if err != nil {
			return err
		}
	} else if tmpl, ok := maintenanceStatusMessages[m.Status]; ok {
		err := n.notify(ctx, m.TenantID,
			"Maintenance Update",
			fmt.Sprintf(tmpl, m.PropertyTitle),
			store.TypeMaintenance,
			map[string]any{
				"maintenance_id": m.MaintenanceID,
				"property_id":    m.PropertyID,
				"status":         m.Status,
			})
		if err != nil {
			return err
		}
	}

	n.broadcast(ctx, []int64{m.TenantID, m.LandlordID}, event.MaintenanceUpdate, &event.MaintenanceUpdatePayload{
		MaintenanceID: m.MaintenanceID,
		Action:        m.Action,
		Status:        m.Status,
		PropertyID:    m.PropertyID,
		TenantID:      m.TenantID,
		LandlordID:    m.LandlordID,
		Timestamp:     event.Timestamp(),
	})
	return nil
}

// ReviewCreated notifies the landlord of a new review.
func (n *Notifier) ReviewCreated(ctx context.Context, r *dto.ReviewV1) error {
	tenantName := n.username(ctx, r.TenantID)
	return n.notify(ctx, r.LandlordID,
		"New Property Review",
		fmt.Sprintf("%s left a %d-star review for %s", tenantName, r.Rating, r.PropertyTitle),
		store.TypeReview,
		map[string]any{
			"review_id":   r.ReviewID,
			"property_id": r.PropertyID,
			"tenant_id":   r.TenantID,
			"rating":      r.Rating,
		})
}

// FavoriteCreated notifies the landlord that their listing was favorited.
func (n *Notifier) FavoriteCreated(ctx context.Context, f *dto.FavoriteV1) error {
	tenantName := n.username(ctx, f.TenantID)
	return n.notify(ctx, f.LandlordID,
		"Property Favorited",
		fmt.Sprintf("%s added %s to their favorites", tenantName, f.PropertyTitle),
		store.TypeProperty,
		map[string]any{
			"property_id": f.PropertyID,
			"tenant_id":   f.TenantID,
		})
}

// preview clips user text on a rune boundary; chat content is arbitrary
// UTF-8 and a byte slice could split a character.
func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
