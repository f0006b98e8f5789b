package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	paymentServices "service-booking/httpServices/payments"
	bookingModel "service-booking/models/booking"
	"service-booking/repository"
	"service-booking/services/settlement"

	"github.com/gofiber/fiber/v2"
)

const webhookSecret = "whsec_test"

type fakeStore struct {
	bookings map[string]*bookingModel.Booking
	reads    int
}

func newFakeStore(bookings ...*bookingModel.Booking) *fakeStore {
	s := &fakeStore{bookings: make(map[string]*bookingModel.Booking)}
	for _, b := range bookings {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*bookingModel.Booking, error) {
	s.reads++
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *fakeStore) SetPaymentIntent(_ context.Context, id string, p bookingModel.PaymentInfo) (bool, error) {
	b, ok := s.bookings[id]
	if !ok || b.PaymentCompleted {
		return false, nil
	}
	b.Payment = p
	return true, nil
}

func (s *fakeStore) CompletePayment(_ context.Context, id, intentID string, at time.Time) (bool, error) {
	b, ok := s.bookings[id]
	if !ok || b.PaymentCompleted {
		return false, nil
	}
	b.PaymentCompleted = true
	b.Payment.IntentID = intentID
	b.Payment.Status = bookingModel.PaymentStatusCompleted
	b.Payment.CompletedAt = &at
	return true, nil
}

func (s *fakeStore) FailPayment(_ context.Context, id string) (bool, error) {
	b, ok := s.bookings[id]
	if !ok || b.Payment.IntentID == "" || b.PaymentCompleted {
		return false, nil
	}
	b.Payment.Status = bookingModel.PaymentStatusFailed
	return true, nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string, interface{}) {}

func newWebhookApp(store *fakeStore) *fiber.App {
	processor := paymentServices.NewProcessorClient("http://processor.local", "sk_test", webhookSecret)
	svc := settlement.NewService(store, processor, noopNotifier{})
	controller := NewPaymentController(svc, processor, nil)

	app := fiber.New()
	app.Post("/api/payments/webhook", controller.Webhook)
	return app
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookRequest(payload []byte, signature string) *http.Request {
	req := httptest.NewRequest("POST", "/api/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(paymentServices.SignatureHeader, signature)
	}
	return req
}

func settleableBooking() *bookingModel.Booking {
	return &bookingModel.Booking{
		ID:         "bk-1",
		CustomerID: "cust-1",
		ProviderID: "prov-1",
		Status:     bookingModel.BookingStatusCompleted,
		Payment: bookingModel.PaymentInfo{
			IntentID: "pi_1",
			Status:   bookingModel.PaymentStatusPending,
			Amount:   4500,
		},
	}
}

func TestWebhookRejectsBadSignatureBeforeAnyRead(t *testing.T) {
	store := newFakeStore(settleableBooking())
	app := newWebhookApp(store)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"booking_id":"bk-1"}}}}`)

	for _, signature := range []string{"", "deadbeef", sign([]byte("other body"))} {
		resp, err := app.Test(webhookRequest(payload, signature))
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	}

	if store.reads != 0 {
		t.Errorf("store read %d times before signature verification", store.reads)
	}
	if store.bookings["bk-1"].PaymentCompleted {
		t.Error("unsigned event settled the booking")
	}
}

func TestWebhookAppliesSucceededOutcome(t *testing.T) {
	store := newFakeStore(settleableBooking())
	app := newWebhookApp(store)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"booking_id":"bk-1"}}}}`)

	resp, err := app.Test(webhookRequest(payload, sign(payload)))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !store.bookings["bk-1"].PaymentCompleted {
		t.Error("verified succeeded event did not settle the booking")
	}

	// Redelivery of the same event is acknowledged without changing state.
	resp, err = app.Test(webhookRequest(payload, sign(payload)))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("redelivery status = %d, want 200", resp.StatusCode)
	}
}

func TestWebhookAcksUnknownEventType(t *testing.T) {
	store := newFakeStore(settleableBooking())
	app := newWebhookApp(store)

	payload := []byte(`{"id":"evt_1","type":"charge.refunded","data":{"object":{"id":"pi_1","metadata":{"booking_id":"bk-1"}}}}`)

	resp, err := app.Test(webhookRequest(payload, sign(payload)))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200 ack", resp.StatusCode)
	}
	if store.bookings["bk-1"].PaymentCompleted {
		t.Error("unhandled event type settled the booking")
	}
}

func TestWebhookAcksUnknownBooking(t *testing.T) {
	app := newWebhookApp(newFakeStore())

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"booking_id":"bk-missing"}}}}`)

	resp, err := app.Test(webhookRequest(payload, sign(payload)))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	// The response must not reveal whether the booking exists.
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200 ack", resp.StatusCode)
	}
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	app := newWebhookApp(newFakeStore())

	payload := []byte(`not json`)
	resp, err := app.Test(webhookRequest(payload, sign(payload)))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
