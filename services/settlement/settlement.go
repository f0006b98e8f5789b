package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"service-booking/constants"
	paymentServices "service-booking/httpServices/payments"
	"service-booking/logger"
	bookingModel "service-booking/models/booking"
	"service-booking/repository"
)

// Store is the slice of the booking repository settlement needs. The
// conditional CompletePayment write is the piece that makes duplicate or
// concurrent outcome deliveries safe.
type Store interface {
	FindByID(ctx context.Context, id string) (*bookingModel.Booking, error)
	SetPaymentIntent(ctx context.Context, id string, p bookingModel.PaymentInfo) (bool, error)
	CompletePayment(ctx context.Context, id, intentID string, at time.Time) (bool, error)
	FailPayment(ctx context.Context, id string) (bool, error)
}

// Processor is the external payment processor capability.
type Processor interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*paymentServices.Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*paymentServices.Intent, error)
}

// Notifier is the fan-out boundary.
type Notifier interface {
	Notify(subjectID, event string, payload interface{})
}

var (
	ErrNotFound            = errors.New("booking not found")
	ErrForbidden           = errors.New("actor may not settle this booking")
	ErrPreconditionFailed  = errors.New("booking is not completed")
	ErrNoIntent            = errors.New("no payment intent exists for this booking")
	ErrAlreadySettled      = errors.New("booking already settled")
	ErrAmountTooSmall      = errors.New("charge amount below processor minimum")
	ErrUpstreamUnavailable = errors.New("payment processor unavailable")
)

// Outcome kinds applied to a booking's payment. Pending covers every
// in-flight processor status; applying it changes nothing.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
	OutcomePending   = "pending"
)

// Currency all charges settle in.
const Currency = "usd"

// Service reconciles payment outcomes arriving from the synchronous confirm
// call and the asynchronous processor webhook onto one idempotent mutation.
type Service struct {
	store     Store
	processor Processor
	notifier  Notifier
}

func NewService(store Store, processor Processor, notifier Notifier) *Service {
	return &Service{
		store:     store,
		processor: processor,
		notifier:  notifier,
	}
}

// Result is the settlement view of a booking after an operation.
type Result struct {
	BookingID        string                   `json:"booking_id"`
	PaymentCompleted bool                     `json:"payment_completed"`
	Payment          bookingModel.PaymentInfo `json:"payment"`
	AlreadySettled   bool                     `json:"-"`
}

// CreateIntent registers a charge for a completed booking with the
// processor. The intent's metadata carries the correlation ids the webhook
// needs to find its way back; nothing is persisted until the processor call
// has succeeded, so a timeout leaves no partial payment sub-state.
func (s *Service) CreateIntent(ctx context.Context, bookingID, actorID string) (*Result, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if actorID != b.CustomerID {
		return nil, ErrForbidden
	}
	if b.Status != bookingModel.BookingStatusCompleted {
		return nil, ErrPreconditionFailed
	}
	if b.PaymentCompleted {
		return nil, ErrAlreadySettled
	}

	minorUnits := toMinorUnits(b.ChargeAmount())
	if minorUnits < paymentServices.MinimumChargeMinorUnits {
		return nil, ErrAmountTooSmall
	}

	intent, err := s.processor.CreateIntent(ctx, minorUnits, Currency, map[string]string{
		"booking_id":   b.ID,
		"customer_id":  b.CustomerID,
		"provider_id":  b.ProviderID,
		"service_type": b.ServiceType,
	})
	if err != nil {
		logger.Error("Failed to create payment intent for booking "+b.ID, err)
		return nil, ErrUpstreamUnavailable
	}

	at := time.Now()
	payment := bookingModel.PaymentInfo{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       bookingModel.PaymentStatusPending,
		Amount:       minorUnits,
		Currency:     Currency,
		CreatedAt:    &at,
	}

	ok, err := s.store.SetPaymentIntent(ctx, b.ID, payment)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Settled between our read and write; the new intent is orphaned at
		// the processor and will expire there.
		return nil, ErrAlreadySettled
	}

	logger.Success(fmt.Sprintf("Payment intent %s created for booking %s (%d %s)",
		intent.ID, b.ID, minorUnits, Currency))

	return &Result{
		BookingID:        b.ID,
		PaymentCompleted: false,
		Payment:          payment,
	}, nil
}

// Confirm is the synchronous settlement path. The caller's claim is not
// trusted: the intent's current status is fetched from the processor and
// only that result is applied.
func (s *Service) Confirm(ctx context.Context, bookingID, actorID string) (*Result, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if actorID != b.CustomerID {
		return nil, ErrForbidden
	}
	if b.Payment.IntentID == "" {
		return nil, ErrNoIntent
	}
	if b.PaymentCompleted {
		return s.settledResult(b), nil
	}

	intent, err := s.processor.RetrieveIntent(ctx, b.Payment.IntentID)
	if err != nil {
		logger.Error("Failed to retrieve payment intent for booking "+b.ID, err)
		return nil, ErrUpstreamUnavailable
	}

	return s.ApplyOutcome(ctx, b.ID, intent.ID, outcomeFromIntentStatus(intent.Status))
}

// ApplyOutcome is the shared idempotent core both entry paths converge on.
// Applying the same outcome twice, from either path and in any order,
// changes nothing after the first application. Unknown outcome kinds are
// logged and acknowledged so the upstream never retries them forever.
func (s *Service) ApplyOutcome(ctx context.Context, bookingID, intentID, outcome string) (*Result, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.PaymentCompleted {
		return s.settledResult(b), nil
	}

	switch outcome {
	case OutcomeSucceeded:
		at := time.Now()
		ok, err := s.store.CompletePayment(ctx, b.ID, intentID, at)
		if err != nil {
			return nil, err
		}
		if !ok {
			// A concurrent delivery won the conditional write; report the
			// state it produced.
			settled, err := s.load(ctx, bookingID)
			if err != nil {
				return nil, err
			}
			return s.settledResult(settled), nil
		}

		s.notifier.Notify(b.ProviderID, constants.EventPaymentReceived, map[string]interface{}{
			"booking_id": b.ID,
			"amount":     b.Payment.Amount,
		})
		s.notifier.Notify(b.CustomerID, constants.EventPaymentConfirmed, map[string]interface{}{
			"booking_id": b.ID,
			"amount":     b.Payment.Amount,
		})

		logger.Success(fmt.Sprintf("Booking %s settled via intent %s", b.ID, intentID))

		b.PaymentCompleted = true
		b.Payment.IntentID = intentID
		b.Payment.Status = bookingModel.PaymentStatusCompleted
		b.Payment.CompletedAt = &at
		return s.settledResult(b), nil

	case OutcomePending:
		// Nothing to settle yet; the webhook or a later confirm finishes it.
		return &Result{
			BookingID:        b.ID,
			PaymentCompleted: false,
			Payment:          b.Payment,
		}, nil

	case OutcomeFailed, OutcomeCanceled:
		// A failed payment never reverts a completed job; only the payment
		// sub-state is marked.
		if b.Payment.IntentID != "" {
			if _, err := s.store.FailPayment(ctx, b.ID); err != nil {
				return nil, err
			}
			b.Payment.Status = bookingModel.PaymentStatusFailed
		}
		return &Result{
			BookingID:        b.ID,
			PaymentCompleted: false,
			Payment:          b.Payment,
		}, nil

	default:
		logger.Warning(fmt.Sprintf("Ignoring unsupported payment outcome %q for booking %s", outcome, bookingID))
		return &Result{
			BookingID:        b.ID,
			PaymentCompleted: b.PaymentCompleted,
			Payment:          b.Payment,
		}, nil
	}
}

// GetStatus is the read side: settlement state for one of the parties.
func (s *Service) GetStatus(ctx context.Context, bookingID, actorID string) (*Result, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(actorID) {
		return nil, ErrForbidden
	}
	return &Result{
		BookingID:        b.ID,
		PaymentCompleted: b.PaymentCompleted,
		Payment:          b.Payment,
	}, nil
}

// OutcomeFromEventType maps a webhook event type to an outcome kind.
// Returns "" for event types the reconciler does not handle.
func OutcomeFromEventType(eventType string) string {
	switch eventType {
	case paymentServices.EventIntentSucceeded:
		return OutcomeSucceeded
	case paymentServices.EventIntentFailed:
		return OutcomeFailed
	case paymentServices.EventIntentCanceled:
		return OutcomeCanceled
	default:
		return ""
	}
}

func outcomeFromIntentStatus(status string) string {
	switch status {
	case paymentServices.IntentStatusSucceeded:
		return OutcomeSucceeded
	case paymentServices.IntentStatusCanceled:
		return OutcomeCanceled
	default:
		// requires_payment_method, processing, etc.: still in flight.
		return OutcomePending
	}
}

func (s *Service) settledResult(b *bookingModel.Booking) *Result {
	return &Result{
		BookingID:        b.ID,
		PaymentCompleted: b.PaymentCompleted,
		Payment:          b.Payment,
		AlreadySettled:   true,
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

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
