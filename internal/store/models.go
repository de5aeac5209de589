package store

import (
	"time"

	"gorm.io/gorm"
)

// Notification type vocabulary, as stored in the notification_type column.
const (
	TypeBooking     = "booking"
	TypeMessage     = "message"
	TypeMaintenance = "maintenance"
	TypeProperty    = "property"
	TypeReview      = "review"
	TypeGeneral     = "general"
)

// User is the minimal slice of the platform user record the realtime core
// needs: identity resolution and display names. The full profile lives in the
// primary backend.
type User struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"size:150;uniqueIndex"`
	Email    string `gorm:"size:254"`
	Role     string `gorm:"size:20"`
}

// Notification is the persisted record realtime pushes reference. It is
// always written before the corresponding publish, so a dropped push is
// recovered on the client's next fetch.
type Notification struct {
	ID               int64  `gorm:"primaryKey"`
	UserID           int64  `gorm:"index:idx_notifications_user_read,priority:1;index:idx_notifications_user_created,priority:1"`
	Title            string `gorm:"size:255"`
	Body             string
	NotificationType string `gorm:"size:20;default:general"`
	IsRead           bool   `gorm:"index:idx_notifications_user_read,priority:2;default:false"`
	Data             string // JSON blob with additional context
	CreatedAt        time.Time `gorm:"index:idx_notifications_user_created,priority:2,sort:desc"`
}

// ChatMessage is a persisted direct message between two users, optionally
// scoped to a property listing.
type ChatMessage struct {
	ID          int64 `gorm:"primaryKey"`
	SenderID    int64 `gorm:"index"`
	RecipientID int64 `gorm:"index"`
	PropertyID  *int64
	Content     string
	IsRead      bool `gorm:"default:false"`
	CreatedAt   time.Time
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Notification{}, &ChatMessage{})
}
