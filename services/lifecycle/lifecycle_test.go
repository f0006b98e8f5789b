package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"service-booking/constants"
	distanceServices "service-booking/httpServices/distance"
	profileServices "service-booking/httpServices/profiles"
	bookingModel "service-booking/models/booking"
	"service-booking/repository"
)

type fakeStore struct {
	bookings map[string]*bookingModel.Booking
	events   []bookingModel.BookingStatusEvent

	// loseConditionalWrites makes every guarded update report zero rows hit,
	// simulating a concurrent writer winning the race.
	loseConditionalWrites bool
}

func newFakeStore(bookings ...*bookingModel.Booking) *fakeStore {
	s := &fakeStore{bookings: make(map[string]*bookingModel.Booking)}
	for _, b := range bookings {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, b *bookingModel.Booking) error {
	s.bookings[b.ID] = b
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*bookingModel.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, from, to bookingModel.BookingStatus, at time.Time) (bool, error) {
	b, ok := s.bookings[id]
	if !ok || b.Status != from || s.loseConditionalWrites {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (s *fakeStore) SetCancelled(_ context.Context, id, reason, cancelledBy string, at time.Time) (bool, error) {
	b, ok := s.bookings[id]
	if !ok || b.Status.IsTerminal() {
		return false, nil
	}
	b.Status = bookingModel.BookingStatusCancelled
	b.CancellationReason = &reason
	b.CancelledBy = &cancelledBy
	b.CancelledAt = &at
	return true, nil
}

func (s *fakeStore) SetReview(_ context.Context, id string, rating int, review string, at time.Time) (bool, error) {
	b, ok := s.bookings[id]
	if !ok || b.Status != bookingModel.BookingStatusCompleted || b.Rating != nil {
		return false, nil
	}
	b.Rating = &rating
	b.Review = &review
	b.ReviewedAt = &at
	return true, nil
}

func (s *fakeStore) ListByCustomer(_ context.Context, customerID string, status bookingModel.BookingStatus) ([]bookingModel.Booking, error) {
	var out []bookingModel.Booking
	for _, b := range s.bookings {
		if b.CustomerID == customerID && (status == "" || b.Status == status) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByProvider(_ context.Context, providerID string, status bookingModel.BookingStatus) ([]bookingModel.Booking, error) {
	var out []bookingModel.Booking
	for _, b := range s.bookings {
		if b.ProviderID == providerID && (status == "" || b.Status == status) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeStore) AppendStatusEvent(_ context.Context, ev *bookingModel.BookingStatusEvent) error {
	s.events = append(s.events, *ev)
	return nil
}

type fakeProfiles struct {
	fail bool
}

func (p *fakeProfiles) GetProfile(_ context.Context, subjectID string) (*profileServices.Profile, error) {
	if p.fail {
		return nil, errors.New("directory down")
	}
	return &profileServices.Profile{
		SubjectID: subjectID,
		Name:      "Name of " + subjectID,
		Phone:     "+15550001111",
		Email:     subjectID + "@example.com",
	}, nil
}

type fakeGeocoder struct {
	fail bool
}

func (g *fakeGeocoder) Geocode(_ context.Context, _ string) (float64, float64, error) {
	if g.fail {
		return 0, 0, errors.New("no result")
	}
	return 40.7128, -74.006, nil
}

type notification struct {
	subject string
	event   string
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) Notify(subjectID, event string, _ interface{}) {
	n.sent = append(n.sent, notification{subject: subjectID, event: event})
}

func validCreateCommand() CreateCommand {
	return CreateCommand{
		CustomerID:     "cust-1",
		ProviderID:     "prov-1",
		ServiceType:    "plumbing",
		Category:       "leak repair",
		ScheduledDate:  "2026-09-15",
		TimeSlot:       "09:00-11:00",
		ServiceAddress: "350 Fifth Ave, New York",
		HourlyRate:     20,
		EstimatedHours: 2,
		PlatformFee:    5,
	}
}

func newTestService(store *fakeStore) (*Service, *fakeNotifier) {
	notifier := &fakeNotifier{}
	return NewService(store, &fakeProfiles{}, &fakeGeocoder{}, notifier), notifier
}

func TestCreate(t *testing.T) {
	store := newFakeStore()
	svc, notifier := newTestService(store)

	b, err := svc.Create(context.Background(), validCreateCommand())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if b.Status != bookingModel.BookingStatusPending {
		t.Errorf("new booking status = %s, want pending", b.Status)
	}
	if b.Pricing.TotalAmount != 45 {
		t.Errorf("total amount = %v, want 45", b.Pricing.TotalAmount)
	}
	if b.CustomerDetails.Name == "" || b.ProviderDetails.Name == "" {
		t.Error("party snapshots not captured")
	}
	if b.ServiceLocation.Latitude == nil {
		t.Error("service location not geocoded")
	}
	if _, ok := store.bookings[b.ID]; !ok {
		t.Error("booking not persisted")
	}
	if len(store.events) != 1 || store.events[0].ToStatus != bookingModel.BookingStatusPending {
		t.Errorf("status event not recorded: %+v", store.events)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].subject != "prov-1" || notifier.sent[0].event != constants.EventBookingRequested {
		t.Errorf("provider not notified: %+v", notifier.sent)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateCommand)
	}{
		{"missing provider", func(c *CreateCommand) { c.ProviderID = "" }},
		{"self booking", func(c *CreateCommand) { c.ProviderID = c.CustomerID }},
		{"missing service type", func(c *CreateCommand) { c.ServiceType = "" }},
		{"missing address", func(c *CreateCommand) { c.ServiceAddress = "" }},
		{"zero rate", func(c *CreateCommand) { c.HourlyRate = 0 }},
		{"negative hours", func(c *CreateCommand) { c.EstimatedHours = -1 }},
		{"negative fee", func(c *CreateCommand) { c.PlatformFee = -1 }},
		{"unparseable date", func(c *CreateCommand) { c.ScheduledDate = "soonish" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(newFakeStore())
			cmd := validCreateCommand()
			tt.mutate(&cmd)
			if _, err := svc.Create(context.Background(), cmd); !errors.Is(err, ErrBadRequest) {
				t.Errorf("Create() error = %v, want ErrBadRequest", err)
			}
		})
	}
}

func TestCreateProfileDirectoryDown(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(newFakeStore(), &fakeProfiles{fail: true}, &fakeGeocoder{}, notifier)

	if _, err := svc.Create(context.Background(), validCreateCommand()); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("Create() error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestCreateSurvivesGeocodeFailure(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProfiles{}, &fakeGeocoder{fail: true}, &fakeNotifier{})

	b, err := svc.Create(context.Background(), validCreateCommand())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.ServiceLocation.Latitude != nil {
		t.Error("service location set despite geocode failure")
	}
}

func TestCreateWithUnconfiguredDistanceService(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProfiles{}, distanceServices.Unavailable{}, &fakeNotifier{})

	b, err := svc.Create(context.Background(), validCreateCommand())
	if err != nil {
		t.Fatalf("Create() error = %v, booking must not depend on maps credentials", err)
	}
	if b.ServiceLocation.Latitude != nil {
		t.Error("service location set without a configured distance service")
	}
}

func TestTransition(t *testing.T) {
	b := &bookingModel.Booking{
		ID:         "bk-1",
		CustomerID: "cust-1",
		ProviderID: "prov-1",
		Status:     bookingModel.BookingStatusPending,
	}
	store := newFakeStore(b)
	svc, notifier := newTestService(store)

	got, err := svc.Transition(context.Background(), "bk-1", "prov-1", bookingModel.BookingStatusConfirmed)
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if got.Status != bookingModel.BookingStatusConfirmed {
		t.Errorf("status = %s, want confirmed", got.Status)
	}
	if got.ConfirmedAt == nil {
		t.Error("confirmed_at not stamped")
	}
	if store.bookings["bk-1"].Status != bookingModel.BookingStatusConfirmed {
		t.Error("transition not persisted")
	}
	if len(store.events) != 1 || store.events[0].ActorRole != constants.RoleProvider {
		t.Errorf("status event not recorded: %+v", store.events)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].subject != "cust-1" {
		t.Errorf("counterparty not notified: %+v", notifier.sent)
	}
}

func TestTransitionRejections(t *testing.T) {
	tests := []struct {
		name    string
		status  bookingModel.BookingStatus
		actor   string
		target  bookingModel.BookingStatus
		wantErr error
	}{
		{"stranger", bookingModel.BookingStatusPending, "stranger", bookingModel.BookingStatusConfirmed, ErrForbidden},
		{"skip to completed", bookingModel.BookingStatusPending, "prov-1", bookingModel.BookingStatusCompleted, ErrInvalidTransition},
		{"backwards", bookingModel.BookingStatusArrived, "prov-1", bookingModel.BookingStatusOnTheWay, ErrInvalidTransition},
		{"from terminal", bookingModel.BookingStatusCompleted, "prov-1", bookingModel.BookingStatusConfirmed, ErrInvalidTransition},
		{"cancel via transition", bookingModel.BookingStatusPending, "cust-1", bookingModel.BookingStatusCancelled, ErrBadRequest},
		{"back to pending", bookingModel.BookingStatusConfirmed, "cust-1", bookingModel.BookingStatusPending, ErrBadRequest},
		{"unknown status", bookingModel.BookingStatusPending, "cust-1", bookingModel.BookingStatus("shipped"), ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(&bookingModel.Booking{
				ID:         "bk-1",
				CustomerID: "cust-1",
				ProviderID: "prov-1",
				Status:     tt.status,
			})
			svc, notifier := newTestService(store)

			_, err := svc.Transition(context.Background(), "bk-1", tt.actor, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Transition() error = %v, want %v", err, tt.wantErr)
			}
			if len(notifier.sent) != 0 {
				t.Errorf("rejected transition still notified: %+v", notifier.sent)
			}
		})
	}
}

func TestTransitionConflict(t *testing.T) {
	store := newFakeStore(&bookingModel.Booking{
		ID:         "bk-1",
		CustomerID: "cust-1",
		ProviderID: "prov-1",
		Status:     bookingModel.BookingStatusPending,
	})
	store.loseConditionalWrites = true
	svc, notifier := newTestService(store)

	_, err := svc.Transition(context.Background(), "bk-1", "prov-1", bookingModel.BookingStatusConfirmed)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Transition() after concurrent change error = %v, want ErrConflict", err)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("lost write still notified: %+v", notifier.sent)
	}
}

func TestCancel(t *testing.T) {
	store := newFakeStore(&bookingModel.Booking{
		ID:         "bk-1",
		CustomerID: "cust-1",
		ProviderID: "prov-1",
		Status:     bookingModel.BookingStatusConfirmed,
	})
	svc, notifier := newTestService(store)

	got, err := svc.Cancel(context.Background(), "bk-1", "cust-1", "found someone else")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got.Status != bookingModel.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if got.CancelledBy == nil || *got.CancelledBy != constants.RoleCustomer {
		t.Errorf("cancelled_by = %v, want customer", got.CancelledBy)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].subject != "prov-1" || notifier.sent[0].event != constants.EventBookingCancelled {
		t.Errorf("counterparty not notified: %+v", notifier.sent)
	}
}

func TestCancelTerminal(t *testing.T) {
	for _, status := range []bookingModel.BookingStatus{
		bookingModel.BookingStatusCompleted,
		bookingModel.BookingStatusCancelled,
	} {
		store := newFakeStore(&bookingModel.Booking{
			ID:         "bk-1",
			CustomerID: "cust-1",
			ProviderID: "prov-1",
			Status:     status,
		})
		svc, _ := newTestService(store)

		if _, err := svc.Cancel(context.Background(), "bk-1", "cust-1", "too late"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Cancel() on %s error = %v, want ErrInvalidTransition", status, err)
		}
	}
}

func TestGet(t *testing.T) {
	store := newFakeStore(&bookingModel.Booking{
		ID:         "bk-1",
		CustomerID: "cust-1",
		ProviderID: "prov-1",
		Status:     bookingModel.BookingStatusPending,
	})
	svc, _ := newTestService(store)

	if _, err := svc.Get(context.Background(), "bk-1", "cust-1"); err != nil {
		t.Errorf("Get() as customer error = %v", err)
	}
	if _, err := svc.Get(context.Background(), "bk-1", "stranger"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get() as stranger error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Get(context.Background(), "missing", "cust-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() missing booking error = %v, want ErrNotFound", err)
	}
}

func TestListForActor(t *testing.T) {
	store := newFakeStore(
		&bookingModel.Booking{ID: "bk-1", CustomerID: "cust-1", ProviderID: "prov-1", Status: bookingModel.BookingStatusPending},
		&bookingModel.Booking{ID: "bk-2", CustomerID: "cust-1", ProviderID: "prov-2", Status: bookingModel.BookingStatusCompleted},
		&bookingModel.Booking{ID: "bk-3", CustomerID: "cust-2", ProviderID: "prov-1", Status: bookingModel.BookingStatusPending},
	)
	svc, _ := newTestService(store)

	asCustomer, err := svc.ListForActor(context.Background(), "cust-1", "", "")
	if err != nil {
		t.Fatalf("ListForActor() error = %v", err)
	}
	if len(asCustomer) != 2 {
		t.Errorf("customer list length = %d, want 2", len(asCustomer))
	}

	asProvider, err := svc.ListForActor(context.Background(), "prov-1", constants.RoleProvider, "")
	if err != nil {
		t.Fatalf("ListForActor() error = %v", err)
	}
	if len(asProvider) != 2 {
		t.Errorf("provider list length = %d, want 2", len(asProvider))
	}

	filtered, err := svc.ListForActor(context.Background(), "cust-1", "", bookingModel.BookingStatusCompleted)
	if err != nil {
		t.Fatalf("ListForActor() error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "bk-2" {
		t.Errorf("filtered list = %+v, want only bk-2", filtered)
	}

	if _, err := svc.ListForActor(context.Background(), "cust-1", "admin", ""); !errors.Is(err, ErrBadRequest) {
		t.Errorf("ListForActor() with unknown role error = %v, want ErrBadRequest", err)
	}
	if _, err := svc.ListForActor(context.Background(), "cust-1", "", "shipped"); !errors.Is(err, ErrBadRequest) {
		t.Errorf("ListForActor() with unknown status error = %v, want ErrBadRequest", err)
	}
}

func TestReview(t *testing.T) {
	store := newFakeStore(&bookingModel.Booking{
		ID:         "bk-1",
		CustomerID: "cust-1",
		ProviderID: "prov-1",
		Status:     bookingModel.BookingStatusCompleted,
	})
	svc, notifier := newTestService(store)

	got, err := svc.Review(context.Background(), "bk-1", "cust-1", 5, "excellent work")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if got.Rating == nil || *got.Rating != 5 {
		t.Errorf("rating = %v, want 5", got.Rating)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].event != constants.EventReviewReceived {
		t.Errorf("provider not notified of review: %+v", notifier.sent)
	}

	// Second attempt must not overwrite the first.
	if _, err := svc.Review(context.Background(), "bk-1", "cust-1", 1, "changed my mind"); !errors.Is(err, ErrAlreadyReviewed) {
		t.Errorf("second Review() error = %v, want ErrAlreadyReviewed", err)
	}
	if *store.bookings["bk-1"].Rating != 5 {
		t.Errorf("rating overwritten to %d", *store.bookings["bk-1"].Rating)
	}
}

func TestReviewRejections(t *testing.T) {
	tests := []struct {
		name    string
		status  bookingModel.BookingStatus
		actor   string
		rating  int
		wantErr error
	}{
		{"provider reviews", bookingModel.BookingStatusCompleted, "prov-1", 5, ErrForbidden},
		{"stranger reviews", bookingModel.BookingStatusCompleted, "stranger", 5, ErrForbidden},
		{"not completed", bookingModel.BookingStatusInProgress, "cust-1", 5, ErrReviewNotAllowed},
		{"rating too low", bookingModel.BookingStatusCompleted, "cust-1", 0, ErrBadRequest},
		{"rating too high", bookingModel.BookingStatusCompleted, "cust-1", 6, ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(&bookingModel.Booking{
				ID:         "bk-1",
				CustomerID: "cust-1",
				ProviderID: "prov-1",
				Status:     tt.status,
			})
			svc, _ := newTestService(store)

			if _, err := svc.Review(context.Background(), "bk-1", tt.actor, tt.rating, "text"); !errors.Is(err, tt.wantErr) {
				t.Errorf("Review() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
