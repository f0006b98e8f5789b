package booking

import (
	"time"
)

// BookingStatusEvent is the audit row appended for every status change.
type BookingStatusEvent struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	BookingID string `gorm:"type:uuid;not null;index" json:"booking_id"`

	FromStatus BookingStatus `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus   BookingStatus `gorm:"type:varchar(20);not null" json:"to_status"`

	// ActorRole is "customer", "provider" or "system" (e.g. settlement).
	ActorRole string `gorm:"type:varchar(20);not null" json:"actor_role"`
	ActorID   string `gorm:"type:varchar(255)" json:"actor_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the BookingStatusEvent model
func (BookingStatusEvent) TableName() string {
	return "booking_status_events"
}
