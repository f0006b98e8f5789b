package constants

// Party roles relative to a booking record. Authorization is decided by
// which side of the booking the acting subject is on, not by a permission
// table.
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
)

// Real-time event names pushed through the fan-out layer.
const (
	EventBookingRequested     = "booking_requested"
	EventBookingStatusChanged = "booking_status_changed"
	EventBookingCancelled     = "booking_cancelled"
	EventPaymentReceived      = "payment_received"
	EventPaymentConfirmed     = "payment_confirmed"
	EventLocationUpdate       = "location_update"
	EventReviewReceived       = "review_received"
)
