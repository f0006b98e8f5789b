package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-booking/constants"
	profileServices "service-booking/httpServices/profiles"
	"service-booking/logger"
	bookingModel "service-booking/models/booking"
	"service-booking/repository"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
)

// Store is the slice of the booking repository the lifecycle engine needs.
type Store interface {
	Create(ctx context.Context, b *bookingModel.Booking) error
	FindByID(ctx context.Context, id string) (*bookingModel.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to bookingModel.BookingStatus, at time.Time) (bool, error)
	SetCancelled(ctx context.Context, id, reason, cancelledBy string, at time.Time) (bool, error)
	SetReview(ctx context.Context, id string, rating int, review string, at time.Time) (bool, error)
	ListByCustomer(ctx context.Context, customerID string, status bookingModel.BookingStatus) ([]bookingModel.Booking, error)
	ListByProvider(ctx context.Context, providerID string, status bookingModel.BookingStatus) ([]bookingModel.Booking, error)
	AppendStatusEvent(ctx context.Context, ev *bookingModel.BookingStatusEvent) error
}

// ProfileDirectory is the external read contract used to snapshot party
// details at creation time.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, subjectID string) (*profileServices.Profile, error)
}

// Geocoder resolves the service address to coordinates for later ETA
// computation.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (float64, float64, error)
}

// Notifier is the fan-out boundary; calls must never fail the mutation.
type Notifier interface {
	Notify(subjectID, event string, payload interface{})
}

var (
	ErrNotFound            = errors.New("booking not found")
	ErrForbidden           = errors.New("actor is not a party to this booking")
	ErrBadRequest          = errors.New("bad request")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConflict            = errors.New("booking state changed concurrently")
	ErrAlreadyReviewed     = errors.New("booking already reviewed")
	ErrReviewNotAllowed    = errors.New("booking is not completed")
	ErrUpstreamUnavailable = errors.New("profile directory unavailable")
)

// Service validates and applies booking lifecycle operations.
type Service struct {
	store    Store
	profiles ProfileDirectory
	geocoder Geocoder
	notifier Notifier
}

func NewService(store Store, profiles ProfileDirectory, geocoder Geocoder, notifier Notifier) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		geocoder: geocoder,
		notifier: notifier,
	}
}

// CreateCommand carries everything needed to open a booking.
type CreateCommand struct {
	CustomerID     string
	ProviderID     string
	ServiceType    string
	Category       string
	ScheduledDate  string
	TimeSlot       string
	ServiceAddress string
	HourlyRate     float64
	EstimatedHours float64
	PlatformFee    float64
}

// Create opens a new pending booking. Party details are snapshotted from the
// profile directory now and intentionally never re-synced. Geocoding the
// service address is best-effort: without coordinates the booking still
// exists, only ETA stays unavailable.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*bookingModel.Booking, error) {
	if cmd.CustomerID == "" || cmd.ProviderID == "" || cmd.CustomerID == cmd.ProviderID {
		return nil, ErrBadRequest
	}
	if cmd.ServiceType == "" || cmd.ServiceAddress == "" {
		return nil, ErrBadRequest
	}
	if cmd.HourlyRate <= 0 || cmd.EstimatedHours <= 0 || cmd.PlatformFee < 0 {
		return nil, ErrBadRequest
	}

	scheduled, err := now.Parse(cmd.ScheduledDate)
	if err != nil {
		return nil, ErrBadRequest
	}

	customerProfile, err := s.profiles.GetProfile(ctx, cmd.CustomerID)
	if err != nil {
		logger.Error("Failed to load customer profile "+cmd.CustomerID, err)
		return nil, ErrUpstreamUnavailable
	}
	providerProfile, err := s.profiles.GetProfile(ctx, cmd.ProviderID)
	if err != nil {
		logger.Error("Failed to load provider profile "+cmd.ProviderID, err)
		return nil, ErrUpstreamUnavailable
	}

	b := &bookingModel.Booking{
		ID:             uuid.NewString(),
		CustomerID:     cmd.CustomerID,
		ProviderID:     cmd.ProviderID,
		ServiceType:    cmd.ServiceType,
		Category:       cmd.Category,
		ScheduledDate:  scheduled,
		TimeSlot:       cmd.TimeSlot,
		ServiceAddress: cmd.ServiceAddress,
		CustomerDetails: bookingModel.PartySnapshot{
			Name:  customerProfile.Name,
			Phone: customerProfile.Phone,
			Email: customerProfile.Email,
			Photo: customerProfile.Photo,
		},
		ProviderDetails: bookingModel.PartySnapshot{
			Name:  providerProfile.Name,
			Phone: providerProfile.Phone,
			Email: providerProfile.Email,
			Photo: providerProfile.Photo,
		},
		Status: bookingModel.BookingStatusPending,
		Pricing: bookingModel.Pricing{
			HourlyRate:     cmd.HourlyRate,
			EstimatedHours: cmd.EstimatedHours,
			PlatformFee:    cmd.PlatformFee,
			TotalAmount:    cmd.HourlyRate*cmd.EstimatedHours + cmd.PlatformFee,
		},
	}

	if lat, lng, err := s.geocoder.Geocode(ctx, cmd.ServiceAddress); err != nil {
		logger.Warning(fmt.Sprintf("Geocoding failed for booking %s: %v", b.ID, err))
	} else {
		b.ServiceLocation = bookingModel.GeoPoint{Latitude: &lat, Longitude: &lng}
	}

	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}

	if err := s.store.AppendStatusEvent(ctx, &bookingModel.BookingStatusEvent{
		BookingID: b.ID,
		ToStatus:  bookingModel.BookingStatusPending,
		ActorRole: constants.RoleCustomer,
		ActorID:   cmd.CustomerID,
	}); err != nil {
		logger.Error("Failed to append status event for booking "+b.ID, err)
	}

	s.notifier.Notify(b.ProviderID, constants.EventBookingRequested, map[string]interface{}{
		"booking_id":   b.ID,
		"service_type": b.ServiceType,
		"customer":     b.CustomerDetails.Name,
	})

	return b, nil
}

// Transition moves the booking along the lifecycle graph. Only a party to
// the booking may act, and only edges in the graph are allowed; anything
// else is rejected instead of silently accepted.
func (s *Service) Transition(ctx context.Context, bookingID, actorID string, target bookingModel.BookingStatus) (*bookingModel.Booking, error) {
	if !target.IsValid() || target == bookingModel.BookingStatusCancelled || target == bookingModel.BookingStatusPending {
		return nil, ErrBadRequest
	}

	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	role := b.RoleOf(actorID)
	if role == "" {
		return nil, ErrForbidden
	}

	if !bookingModel.CanTransition(b.Status, target) {
		return nil, ErrInvalidTransition
	}

	at := time.Now()
	ok, err := s.store.UpdateStatus(ctx, b.ID, b.Status, target, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	if err := s.store.AppendStatusEvent(ctx, &bookingModel.BookingStatusEvent{
		BookingID:  b.ID,
		FromStatus: b.Status,
		ToStatus:   target,
		ActorRole:  role,
		ActorID:    actorID,
	}); err != nil {
		logger.Error("Failed to append status event for booking "+b.ID, err)
	}

	payload := map[string]interface{}{
		"booking_id": b.ID,
		"old_status": b.Status,
		"new_status": target,
	}
	s.notifier.Notify(s.counterparty(b, actorID), constants.EventBookingStatusChanged, payload)

	oldStatus := b.Status
	b.Status = target
	switch target {
	case bookingModel.BookingStatusConfirmed:
		b.ConfirmedAt = &at
	case bookingModel.BookingStatusInProgress:
		b.StartedAt = &at
	case bookingModel.BookingStatusCompleted:
		b.CompletedAt = &at
	}

	logger.Info(fmt.Sprintf("Booking %s moved %s -> %s by %s", b.ID, oldStatus, target, role))
	return b, nil
}

// Cancel aborts a non-terminal booking, recording which side pulled out.
func (s *Service) Cancel(ctx context.Context, bookingID, actorID, reason string) (*bookingModel.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	role := b.RoleOf(actorID)
	if role == "" {
		return nil, ErrForbidden
	}

	if b.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	at := time.Now()
	ok, err := s.store.SetCancelled(ctx, b.ID, reason, role, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	if err := s.store.AppendStatusEvent(ctx, &bookingModel.BookingStatusEvent{
		BookingID:  b.ID,
		FromStatus: b.Status,
		ToStatus:   bookingModel.BookingStatusCancelled,
		ActorRole:  role,
		ActorID:    actorID,
	}); err != nil {
		logger.Error("Failed to append status event for booking "+b.ID, err)
	}

	s.notifier.Notify(s.counterparty(b, actorID), constants.EventBookingCancelled, map[string]interface{}{
		"booking_id":   b.ID,
		"cancelled_by": role,
		"reason":       reason,
	})

	b.Status = bookingModel.BookingStatusCancelled
	b.CancellationReason = &reason
	b.CancelledBy = &role
	b.CancelledAt = &at
	return b, nil
}

// Get returns the booking to one of its parties.
func (s *Service) Get(ctx context.Context, bookingID, actorID string) (*bookingModel.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(actorID) {
		return nil, ErrForbidden
	}
	return b, nil
}

// ListForActor lists bookings where the actor holds the given role.
func (s *Service) ListForActor(ctx context.Context, actorID, role string, status bookingModel.BookingStatus) ([]bookingModel.Booking, error) {
	if status != "" && !status.IsValid() {
		return nil, ErrBadRequest
	}

	switch role {
	case constants.RoleProvider:
		return s.store.ListByProvider(ctx, actorID, status)
	case constants.RoleCustomer, "":
		return s.store.ListByCustomer(ctx, actorID, status)
	default:
		return nil, ErrBadRequest
	}
}

// Review records the customer's rating, once, after completion.
func (s *Service) Review(ctx context.Context, bookingID, actorID string, rating int, review string) (*bookingModel.Booking, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrBadRequest
	}

	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !b.IsParty(actorID) {
		return nil, ErrForbidden
	}
	if actorID != b.CustomerID {
		return nil, ErrForbidden
	}
	if b.Status != bookingModel.BookingStatusCompleted {
		return nil, ErrReviewNotAllowed
	}
	if b.Rating != nil {
		return nil, ErrAlreadyReviewed
	}

	at := time.Now()
	ok, err := s.store.SetReview(ctx, b.ID, rating, review, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyReviewed
	}

	s.notifier.Notify(b.ProviderID, constants.EventReviewReceived, map[string]interface{}{
		"booking_id": b.ID,
		"rating":     rating,
	})

	b.Rating = &rating
	b.Review = &review
	b.ReviewedAt = &at
	return b, nil
}

func (s *Service) load(ctx context.Context, bookingID string) (*bookingModel.Booking, error) {
	b, err := s.store.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) counterparty(b *bookingModel.Booking, actorID string) string {
	if actorID == b.CustomerID {
		return b.ProviderID
	}
	return b.CustomerID
}
