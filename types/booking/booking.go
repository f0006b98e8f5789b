package booking

// BookingCreateRequest is the payload for opening a new booking.
type BookingCreateRequest struct {
	ProviderID     string  `json:"provider_id"`
	ServiceType    string  `json:"service_type"`
	Category       string  `json:"category"`
	ScheduledDate  string  `json:"scheduled_date"`
	TimeSlot       string  `json:"time_slot"`
	ServiceAddress string  `json:"service_address"`
	HourlyRate     float64 `json:"hourly_rate"`
	EstimatedHours float64 `json:"estimated_hours"`
	PlatformFee    float64 `json:"platform_fee"`
}

// TransitionRequest moves a booking to a new status.
type TransitionRequest struct {
	Status string `json:"status"`
}

// CancelRequest aborts a booking.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// ReviewRequest records the customer's rating after completion.
type ReviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// IntakeSuggestionRequest asks for an AI categorization of a free-text
// problem description.
type IntakeSuggestionRequest struct {
	Description string `json:"description"`
}
