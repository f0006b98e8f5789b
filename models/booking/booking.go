package booking

import (
	"time"

	"service-booking/constants"
)

// PartySnapshot holds the contact details of one side of a booking, captured
// at creation time. Later profile edits do not flow back into the booking.
type PartySnapshot struct {
	Name  string `gorm:"type:varchar(255)" json:"name"`
	Phone string `gorm:"type:varchar(20)" json:"phone"`
	Email string `gorm:"type:varchar(255)" json:"email"`
	Photo string `gorm:"type:varchar(2048)" json:"photo,omitempty"`
}

// Pricing is computed once at creation and never mutated afterwards.
// FinalAmount is only set through an explicit reprice and, when present,
// takes precedence over TotalAmount for settlement.
type Pricing struct {
	HourlyRate     float64  `gorm:"not null" json:"hourly_rate"`
	EstimatedHours float64  `gorm:"not null" json:"estimated_hours"`
	PlatformFee    float64  `gorm:"not null" json:"platform_fee"`
	TotalAmount    float64  `gorm:"not null" json:"total_amount"`
	FinalAmount    *float64 `json:"final_amount,omitempty"`
}

// PaymentInfo is absent until the first payment intent is created; presence
// is signalled by a non-empty IntentID.
type PaymentInfo struct {
	IntentID     string     `gorm:"type:varchar(255)" json:"payment_intent_id,omitempty"`
	ClientSecret string     `gorm:"type:varchar(255)" json:"client_secret,omitempty"`
	Status       string     `gorm:"type:varchar(20)" json:"status,omitempty"`
	Amount       int64      `json:"amount,omitempty"`
	Currency     string     `gorm:"type:varchar(10)" json:"currency,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Payment sub-state statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// ProviderLocation is the provider's last reported position. LastUpdated is
// the ordering key for concurrent reports: an older report never overwrites
// a newer one.
type ProviderLocation struct {
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Heading     float64    `json:"heading"`
	Speed       float64    `json:"speed"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// Tracking carries the ephemeral live-tracking sub-state. It is only
// meaningful while the booking is in the active-delivery phase; readers must
// treat it as stale outside that phase.
type Tracking struct {
	ProviderLocation  ProviderLocation `gorm:"embedded;embeddedPrefix:loc_" json:"provider_location"`
	EstimatedDistance *int64           `json:"estimated_distance,omitempty"` // meters
	EstimatedDuration *int64           `json:"estimated_duration,omitempty"` // seconds
	LastCalculated    *time.Time       `json:"last_calculated,omitempty"`
}

// GeoPoint is a WGS84 coordinate pair. Nil fields mean the point was never
// resolved (e.g. geocoding failed at creation).
type GeoPoint struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Booking is the aggregate root for one requested-and-tracked service
// engagement between a customer and a provider. Both party ids are identity
// provider subject ids, not foreign keys into a local users table.
type Booking struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID string `gorm:"type:varchar(255);not null" json:"customer_id"`
	ProviderID string `gorm:"type:varchar(255);not null" json:"provider_id"`

	ServiceType    string    `gorm:"type:varchar(100);not null" json:"service_type"`
	Category       string    `gorm:"type:varchar(100)" json:"category"`
	ScheduledDate  time.Time `gorm:"not null" json:"scheduled_date"`
	TimeSlot       string    `gorm:"type:varchar(50)" json:"time_slot"`
	ServiceAddress string    `gorm:"type:text;not null" json:"service_address"`

	CustomerDetails PartySnapshot `gorm:"embedded;embeddedPrefix:customer_detail_" json:"customer_details"`
	ProviderDetails PartySnapshot `gorm:"embedded;embeddedPrefix:provider_detail_" json:"provider_details"`

	Status  BookingStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Pricing Pricing       `gorm:"embedded;embeddedPrefix:pricing_" json:"pricing"`

	Payment PaymentInfo `gorm:"embedded;embeddedPrefix:payment_" json:"payment,omitempty"`
	// PaymentCompleted is the single source of truth gating settlement
	// side-effects. It flips false -> true exactly once and is never
	// reverted.
	PaymentCompleted bool `gorm:"not null;default:false" json:"payment_completed"`

	Tracking        Tracking `gorm:"embedded;embeddedPrefix:tracking_" json:"tracking,omitempty"`
	ServiceLocation GeoPoint `gorm:"embedded;embeddedPrefix:service_location_" json:"service_location,omitempty"`

	CancellationReason *string    `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CancelledBy        *string    `gorm:"type:varchar(20)" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	Rating     *int       `json:"rating,omitempty"`
	Review     *string    `gorm:"type:text" json:"review,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// RoleOf returns the role the given subject holds on this booking, or ""
// when the subject is neither party.
func (b *Booking) RoleOf(subjectID string) string {
	switch subjectID {
	case b.CustomerID:
		return constants.RoleCustomer
	case b.ProviderID:
		return constants.RoleProvider
	default:
		return ""
	}
}

// IsParty reports whether the subject is the customer or the provider.
func (b *Booking) IsParty(subjectID string) bool {
	return b.RoleOf(subjectID) != ""
}

// ChargeAmount returns the amount to settle: the repriced final amount when
// one exists, the original total otherwise.
func (b *Booking) ChargeAmount() float64 {
	if b.Pricing.FinalAmount != nil {
		return *b.Pricing.FinalAmount
	}
	return b.Pricing.TotalAmount
}
