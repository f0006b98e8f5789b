package repository

import (
	"context"
	"errors"
	"time"

	bookingModel "service-booking/models/booking"

	"gorm.io/gorm"
)

// BookingRepository is the durable store for the booking aggregate.
//
// Every state-changing write that follows a read re-asserts its precondition
// in the UPDATE's WHERE clause and reports whether a row was hit. Concurrent
// writers to the same booking therefore race at the database, not in Go:
// the loser sees zero rows affected instead of silently overwriting.
type BookingRepository struct {
	DB *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{DB: db}
}

var ErrNotFound = errors.New("booking not found")

func (r *BookingRepository) Create(ctx context.Context, b *bookingModel.Booking) error {
	return r.DB.WithContext(ctx).Create(b).Error
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByCustomer returns the customer's bookings, optionally filtered by
// status, newest first.
func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID string, status bookingModel.BookingStatus) ([]bookingModel.Booking, error) {
	return r.list(ctx, "customer_id", customerID, status)
}

// ListByProvider returns the provider's bookings, optionally filtered by
// status, newest first.
func (r *BookingRepository) ListByProvider(ctx context.Context, providerID string, status bookingModel.BookingStatus) ([]bookingModel.Booking, error) {
	return r.list(ctx, "provider_id", providerID, status)
}

func (r *BookingRepository) list(ctx context.Context, column, subjectID string, status bookingModel.BookingStatus) ([]bookingModel.Booking, error) {
	q := r.DB.WithContext(ctx).Where(column+" = ?", subjectID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var out []bookingModel.Booking
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves the booking from one status to another. The write only
// lands if the booking is still in the expected source status; a false
// return means another writer got there first.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to bookingModel.BookingStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case bookingModel.BookingStatusConfirmed:
		updates["confirmed_at"] = at
	case bookingModel.BookingStatusInProgress:
		updates["started_at"] = at
	case bookingModel.BookingStatusCompleted:
		updates["completed_at"] = at
	}

	tx := r.DB.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// SetCancelled cancels the booking unless it already reached a terminal
// status.
func (r *BookingRepository) SetCancelled(ctx context.Context, id, reason, cancelledBy string, at time.Time) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ? AND status NOT IN ?", id, []bookingModel.BookingStatus{
			bookingModel.BookingStatusCompleted,
			bookingModel.BookingStatusCancelled,
		}).
		Updates(map[string]interface{}{
			"status":              bookingModel.BookingStatusCancelled,
			"cancellation_reason": reason,
			"cancelled_by":        cancelledBy,
			"cancelled_at":        at,
			"updated_at":          at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// SetPaymentIntent records a freshly created intent. It refuses to touch a
// booking that settled in the meantime.
func (r *BookingRepository) SetPaymentIntent(ctx context.Context, id string, p bookingModel.PaymentInfo) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ? AND payment_completed = ?", id, false).
		Updates(map[string]interface{}{
			"payment_intent_id":     p.IntentID,
			"payment_client_secret": p.ClientSecret,
			"payment_status":        p.Status,
			"payment_amount":        p.Amount,
			"payment_currency":      p.Currency,
			"payment_created_at":    p.CreatedAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// CompletePayment flips paymentCompleted exactly once. Duplicate or
// concurrent deliveries of the same outcome lose the conditional write and
// are treated as no-ops by the caller, which is what makes settlement
// at-most-once without a lock.
func (r *BookingRepository) CompletePayment(ctx context.Context, id, intentID string, at time.Time) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ? AND payment_completed = ?", id, false).
		Updates(map[string]interface{}{
			"payment_completed":    true,
			"payment_intent_id":    intentID,
			"payment_status":       bookingModel.PaymentStatusCompleted,
			"payment_completed_at": at,
			"updated_at":           at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// FailPayment marks the payment sub-state failed. Only applies when an
// intent exists and the booking has not settled; the booking status itself
// is never touched by a failed payment.
func (r *BookingRepository) FailPayment(ctx context.Context, id string) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ? AND payment_intent_id <> '' AND payment_completed = ?", id, false).
		Update("payment_status", bookingModel.PaymentStatusFailed)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// UpdateProviderLocation persists a position report, last-write-wins by
// report timestamp. Reports arriving out of order never roll the position
// back.
func (r *BookingRepository) UpdateProviderLocation(ctx context.Context, id string, loc bookingModel.ProviderLocation) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ? AND (tracking_loc_last_updated IS NULL OR tracking_loc_last_updated <= ?)", id, loc.LastUpdated).
		Updates(map[string]interface{}{
			"tracking_loc_latitude":     loc.Latitude,
			"tracking_loc_longitude":    loc.Longitude,
			"tracking_loc_heading":      loc.Heading,
			"tracking_loc_speed":        loc.Speed,
			"tracking_loc_last_updated": loc.LastUpdated,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// SetTrackingEstimate stores the recomputed ETA/distance.
func (r *BookingRepository) SetTrackingEstimate(ctx context.Context, id string, meters, seconds int64, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tracking_estimated_distance": meters,
			"tracking_estimated_duration": seconds,
			"tracking_last_calculated":    at,
		}).Error
}

// SetReview records the customer's rating once. A second attempt, or an
// attempt on a booking that is not completed, hits no row.
func (r *BookingRepository) SetReview(ctx context.Context, id string, rating int, review string, at time.Time) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&bookingModel.Booking{}).
		Where("id = ? AND rating IS NULL AND status = ?", id, bookingModel.BookingStatusCompleted).
		Updates(map[string]interface{}{
			"rating":      rating,
			"review":      review,
			"reviewed_at": at,
			"updated_at":  at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// AppendStatusEvent writes the audit row for a transition.
func (r *BookingRepository) AppendStatusEvent(ctx context.Context, ev *bookingModel.BookingStatusEvent) error {
	return r.DB.WithContext(ctx).Create(ev).Error
}
