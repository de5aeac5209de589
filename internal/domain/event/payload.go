package event

// Payload structs mirror the wire shapes one-to-one. The transport marshaller
// embeds them under a "type" discriminator; the bus codec round-trips them by
// Kind.

type ConnectionEstablishedPayload struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

type UnreadCountPayload struct {
	Count int64 `json:"count"`
}

type NotificationPayload struct {
	Title            string         `json:"title"`
	Body             string         `json:"body"`
	NotificationType string         `json:"notification_type"`
	Data             map[string]any `json:"data"`
	NotificationID   int64          `json:"notification_id"`
	Timestamp        string         `json:"timestamp"`
}

type ChatMessagePayload struct {
	MessageID   int64  `json:"message_id"`
	SenderID    int64  `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
	PropertyID  *int64 `json:"property_id"`
}

type BookingUpdatePayload struct {
	BookingID     int64  `json:"booking_id"`
	Action        string `json:"action"`
	Status        string `json:"status"`
	PropertyID    int64  `json:"property_id"`
	PropertyTitle string `json:"property_title"`
	TenantID      int64  `json:"tenant_id"`
	LandlordID    int64  `json:"landlord_id"`
	Timestamp     string `json:"timestamp"`
}

type MaintenanceUpdatePayload struct {
	MaintenanceID int64  `json:"maintenance_id"`
	Action        string `json:"action"`
	Status        string `json:"status"`
	PropertyID    int64  `json:"property_id"`
	TenantID      int64  `json:"tenant_id"`
	LandlordID    int64  `json:"landlord_id"`
	Timestamp     string `json:"timestamp"`
}

type PongPayload struct {
	Timestamp string `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type MarkReadResponsePayload struct {
	NotificationID int64 `json:"notification_id"`
	Success        bool  `json:"success"`
}

type MarkAllReadResponsePayload struct {
	MarkedCount int64 `json:"marked_count"`
}
