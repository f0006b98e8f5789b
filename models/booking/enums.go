package booking

// BookingStatus is the canonical booking lifecycle status.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusOnTheWay   BookingStatus = "on-the-way"
	BookingStatusArrived    BookingStatus = "arrived"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// StatusTransitions is the lifecycle graph as data. Cancellation is handled
// separately: it is legal from any non-terminal status.
var StatusTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed},
	BookingStatusConfirmed:  {BookingStatusOnTheWay, BookingStatusInProgress},
	BookingStatusOnTheWay:   {BookingStatusArrived},
	BookingStatusArrived:    {BookingStatusInProgress},
	BookingStatusInProgress: {BookingStatusCompleted},
}

// CanTransition reports whether to is directly reachable from from.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range StatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (bs BookingStatus) String() string {
	return string(bs)
}

func (bs BookingStatus) IsValid() bool {
	switch bs {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusOnTheWay,
		BookingStatusArrived, BookingStatusInProgress, BookingStatusCompleted,
		BookingStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once the booking can no longer change status.
func (bs BookingStatus) IsTerminal() bool {
	return bs == BookingStatusCompleted || bs == BookingStatusCancelled
}

// IsActiveDelivery reports whether live tracking is meaningful in this
// status: provider en route through job in progress.
func (bs BookingStatus) IsActiveDelivery() bool {
	switch bs {
	case BookingStatusOnTheWay, BookingStatusArrived, BookingStatusInProgress:
		return true
	default:
		return false
	}
}

// GetAllBookingStatuses returns all valid booking statuses
func GetAllBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusOnTheWay,
		BookingStatusArrived,
		BookingStatusInProgress,
		BookingStatusCompleted,
		BookingStatusCancelled,
	}
}
