package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-booking/constants"
	"service-booking/logger"
	bookingModel "service-booking/models/booking"
	"service-booking/repository"
)

// Store is the slice of the booking repository the tracking updater needs.
type Store interface {
	FindByID(ctx context.Context, id string) (*bookingModel.Booking, error)
	UpdateProviderLocation(ctx context.Context, id string, loc bookingModel.ProviderLocation) (bool, error)
	SetTrackingEstimate(ctx context.Context, id string, meters, seconds int64, at time.Time) error
}

// DistanceService is the external travel-estimate capability.
type DistanceService interface {
	Distance(ctx context.Context, originLat, originLng, destLat, destLng float64) (int64, int64, error)
}

// Notifier is the fan-out boundary.
type Notifier interface {
	Notify(subjectID, event string, payload interface{})
}

var (
	ErrNotFound   = errors.New("booking not found")
	ErrForbidden  = errors.New("actor may not access tracking for this booking")
	ErrBadRequest = errors.New("latitude and longitude are required")
)

// Service ingests high-frequency provider position reports and serves the
// customer's tracking view.
type Service struct {
	store    Store
	distance DistanceService
	notifier Notifier
}

func NewService(store Store, distance DistanceService, notifier Notifier) *Service {
	return &Service{
		store:    store,
		distance: distance,
		notifier: notifier,
	}
}

// Report is one position sample from the provider's client, expected every
// 10-15 seconds while en route.
type Report struct {
	Latitude  *float64
	Longitude *float64
	Heading   *float64
	Speed     *float64
}

// View is the customer/provider-facing tracking read model. When the
// booking is outside the active-delivery phase no position data is exposed
// at all.
type View struct {
	TrackingAvailable bool                           `json:"tracking_available"`
	Status            bookingModel.BookingStatus     `json:"status"`
	ProviderLocation  *bookingModel.ProviderLocation `json:"provider_location,omitempty"`
	ServiceLocation   *bookingModel.GeoPoint         `json:"service_location,omitempty"`
	Tracking          *bookingModel.Tracking         `json:"tracking,omitempty"`
	ProviderInfo      *bookingModel.PartySnapshot    `json:"provider_info,omitempty"`
}

// ReportLocation persists the provider's position. The position write is
// unconditional; the ETA recompute only runs in the active-delivery phase
// and its failure degrades to "position known, ETA unknown" — it never
// fails the report.
func (s *Service) ReportLocation(ctx context.Context, bookingID, actorID string, report Report) error {
	if report.Latitude == nil || report.Longitude == nil {
		return ErrBadRequest
	}

	b, err := s.load(ctx, bookingID)
	if err != nil {
		return err
	}

	if actorID != b.ProviderID {
		return ErrForbidden
	}

	at := time.Now()
	loc := bookingModel.ProviderLocation{
		Latitude:    *report.Latitude,
		Longitude:   *report.Longitude,
		LastUpdated: &at,
	}
	if report.Heading != nil {
		loc.Heading = *report.Heading
	}
	if report.Speed != nil {
		loc.Speed = *report.Speed
	}

	ok, err := s.store.UpdateProviderLocation(ctx, b.ID, loc)
	if err != nil {
		return err
	}
	if !ok {
		// A newer report already landed; nothing to recompute.
		return nil
	}

	if b.Status.IsActiveDelivery() {
		s.recomputeEstimate(ctx, b, loc)
	}

	s.notifier.Notify(b.CustomerID, constants.EventLocationUpdate, map[string]interface{}{
		"booking_id": b.ID,
		"latitude":   loc.Latitude,
		"longitude":  loc.Longitude,
	})

	return nil
}

// ReadTracking returns the live view for a party. Outside the
// active-delivery phase only the status is revealed, so stale or
// pre-dispatch positions never leak.
func (s *Service) ReadTracking(ctx context.Context, bookingID, actorID string) (*View, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !b.IsParty(actorID) {
		return nil, ErrForbidden
	}

	if !b.Status.IsActiveDelivery() {
		return &View{
			TrackingAvailable: false,
			Status:            b.Status,
		}, nil
	}

	return &View{
		TrackingAvailable: true,
		Status:            b.Status,
		ProviderLocation:  &b.Tracking.ProviderLocation,
		ServiceLocation:   &b.ServiceLocation,
		Tracking:          &b.Tracking,
		ProviderInfo:      &b.ProviderDetails,
	}, nil
}

func (s *Service) recomputeEstimate(ctx context.Context, b *bookingModel.Booking, loc bookingModel.ProviderLocation) {
	if b.ServiceLocation.Latitude == nil || b.ServiceLocation.Longitude == nil {
		return
	}

	meters, seconds, err := s.distance.Distance(ctx,
		loc.Latitude, loc.Longitude,
		*b.ServiceLocation.Latitude, *b.ServiceLocation.Longitude)
	if err != nil {
		logger.Warning(fmt.Sprintf("ETA recompute failed for booking %s: %v", b.ID, err))
		return
	}

	if err := s.store.SetTrackingEstimate(ctx, b.ID, meters, seconds, time.Now()); err != nil {
		logger.Error("Failed to persist tracking estimate for booking "+b.ID, err)
	}
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
