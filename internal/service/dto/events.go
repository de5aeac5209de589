// Package dto carries the intake shapes for platform domain events as they
// arrive over the broker, before conversion into realtime envelopes.
package dto

// BookingV1 describes a booking request transition published by the booking
// state machine.
type BookingV1 struct {
	BookingID     int64  `json:"booking_id"`
	Action        string `json:"action"` // created, approved, declined, checked_in, completed, cancelled
	Status        string `json:"status"`
	PropertyID    int64  `json:"property_id"`
	PropertyTitle string `json:"property_title"`
	TenantID      int64  `json:"tenant_id"`
	LandlordID    int64  `json:"landlord_id"`
	CheckInDate   string `json:"check_in_date,omitempty"`
	CheckOutDate  string `json:"check_out_date,omitempty"`
}

// MessageV1 describes a chat message already persisted by the messaging CRUD.
type MessageV1 struct {
	MessageID   int64  `json:"message_id"`
	SenderID    int64  `json:"sender_id"`
	RecipientID int64  `json:"recipient_id"`
	PropertyID  *int64 `json:"property_id,omitempty"`
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
}

// MaintenanceV1 describes a maintenance request transition.
type MaintenanceV1 struct {
	MaintenanceID int64  `json:"maintenance_id"`
	Action        string `json:"action"` // created, in_progress, resolved, open
	Status        string `json:"status"`
	PropertyID    int64  `json:"property_id"`
	PropertyTitle string `json:"property_title"`
	TenantID      int64  `json:"tenant_id"`
	LandlordID    int64  `json:"landlord_id"`
	Description   string `json:"description"`
}

// ReviewV1 describes a freshly created property review.
type ReviewV1 struct {
	ReviewID      int64  `json:"review_id"`
	PropertyID    int64  `json:"property_id"`
	PropertyTitle string `json:"property_title"`
	TenantID      int64  `json:"tenant_id"`
	LandlordID    int64  `json:"landlord_id"`
	Rating        int    `json:"rating"`
}

// FavoriteV1 describes a property being added to a tenant's favorites.
type FavoriteV1 struct {
	PropertyID    int64  `json:"property_id"`
	PropertyTitle string `json:"property_title"`
	TenantID      int64  `json:"tenant_id"`
	LandlordID    int64  `json:"landlord_id"`
}
