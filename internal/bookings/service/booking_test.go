package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	bookingserrors "campusbook/internal/bookings/errors"
	"campusbook/internal/bookings/validator"
	"campusbook/internal/eligibility"
	"campusbook/pkg/client"
	apperrors "campusbook/pkg/errors"
	"campusbook/pkg/kafka"
	"campusbook/pkg/logger"
	"campusbook/pkg/model"
)

// ────────────────────────────────────────────────────────────────
// mocks
// ────────────────────────────────────────────────────────────────

type mockBookingAPI struct {
	getByIDFunc  func(ctx context.Context, id string) (*model.Booking, error)
	checkInFunc  func(ctx context.Context, id string) (*model.Booking, error)
	checkOutFunc func(ctx context.Context, id string) (*model.Booking, error)

	checkInCalls  int
	checkOutCalls int
}

func (m *mockBookingAPI) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBookingAPI) CheckIn(ctx context.Context, id string) (*model.Booking, error) {
	m.checkInCalls++
	if m.checkInFunc != nil {
		return m.checkInFunc(ctx, id)
	}
	return nil, errors.New("unexpected check-in")
}

func (m *mockBookingAPI) CheckOut(ctx context.Context, id string) (*model.Booking, error) {
	m.checkOutCalls++
	if m.checkOutFunc != nil {
		return m.checkOutFunc(ctx, id)
	}
	return nil, errors.New("unexpected check-out")
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

type fakeSession struct {
	calls int
	err   error
}

func (f *fakeSession) Refresh(ctx context.Context) error {
	f.calls++
	return f.err
}

// ────────────────────────────────────────────────────────────────
// helpers
// ────────────────────────────────────────────────────────────────

var testNow = time.Date(2024, 5, 15, 9, 40, 0, 0, time.UTC)

func approved(date string) *model.Booking {
	return &model.Booking{
		ID:          "b1",
		FacilityID:  "f1",
		UserID:      "u1",
		Status:      model.StatusApproved,
		BookingDate: date,
		StartTime:   "10:00",
		EndTime:     "11:00",
	}
}

func checkedIn(b *model.Booking) *model.Booking {
	cp := *b
	ts := testNow
	cp.CheckedInAt = &ts
	cp.Status = model.StatusCheckedIn
	return &cp
}

func newService(api BookingAPI, opts ...Option) BookingService {
	log := logger.Discard()
	evaluator := eligibility.New(
		eligibility.WithClock(func() time.Time { return testNow }),
		eligibility.WithLocation(time.UTC),
	)
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewBookingService(api, evaluator, validator.NewBookingValidator(log), log, opts...)
}

func staticBooking(b *model.Booking) func(context.Context, string) (*model.Booking, error) {
	return func(context.Context, string) (*model.Booking, error) { return b, nil }
}

// ────────────────────────────────────────────────────────────────
// CheckIn
// ────────────────────────────────────────────────────────────────

func TestCheckIn_OnTimePublishesEvent(t *testing.T) {
	b := approved("2024-05-15")
	api := &mockBookingAPI{
		getByIDFunc: staticBooking(b),
		checkInFunc: func(ctx context.Context, id string) (*model.Booking, error) { return checkedIn(b), nil },
	}
	pub := &recordingPublisher{}

	updated, err := newService(api, WithPublisher(pub)).CheckIn(context.Background(), "b1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.IsCheckedIn() {
		t.Errorf("expected checked-in booking")
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.GetEventType() != EventCheckedIn || msg.Key != "b1" {
		t.Errorf("unexpected event %+v", msg.Headers)
	}
	var ev BookingEvent
	if err := msg.DecodeValue(&ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.BookingID != "b1" || ev.Status != model.StatusCheckedIn.String() || !ev.OccurredAt.Equal(testNow) {
		t.Errorf("unexpected event payload %+v", ev)
	}
}

func TestCheckIn_WarningNeedsConfirmation(t *testing.T) {
	b := approved("2024-05-17")
	api := &mockBookingAPI{
		getByIDFunc: staticBooking(b),
		checkInFunc: func(ctx context.Context, id string) (*model.Booking, error) { return checkedIn(b), nil },
	}
	svc := newService(api)

	_, err := svc.CheckIn(context.Background(), "b1", false)
	if !apperrors.HasCode(err, apperrors.CodeConfirmationRequired) {
		t.Fatalf("expected confirmation required, got %v", err)
	}
	if api.checkInCalls != 0 {
		t.Fatalf("backend must not be called before confirmation")
	}

	if _, err := svc.CheckIn(context.Background(), "b1", true); err != nil {
		t.Fatalf("unexpected error after confirmation: %v", err)
	}
	if api.checkInCalls != 1 {
		t.Errorf("expected one backend call, got %d", api.checkInCalls)
	}
}

func TestCheckIn_NotEligible(t *testing.T) {
	tests := []struct {
		name       string
		booking    *model.Booking
		wantReason eligibility.Reason
	}{
		{"stale", approved("2024-05-13"), eligibility.ReasonTooLate},
		{"already checked in", checkedIn(approved("2024-05-15")), eligibility.ReasonAlreadyCheckedIn},
		{"pending", func() *model.Booking { b := approved("2024-05-15"); b.Status = model.StatusPending; return b }(), eligibility.ReasonInvalidStatus},
		{"end before start", func() *model.Booking { b := approved("2024-05-15"); b.EndTime = "09:00"; return b }(), eligibility.ReasonInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockBookingAPI{getByIDFunc: staticBooking(tt.booking)}

			_, err := newService(api).CheckIn(context.Background(), "b1", true)
			appErr := apperrors.AsAppError(err)
			if appErr.Code != apperrors.CodeNotEligible {
				t.Fatalf("expected NOT_ELIGIBLE, got %v", err)
			}
			if appErr.Details["reason"] != string(tt.wantReason) {
				t.Errorf("expected reason %s, got %v", tt.wantReason, appErr.Details["reason"])
			}
			if api.checkInCalls != 0 {
				t.Errorf("backend must not be called")
			}
		})
	}
}

func TestCheckIn_PublishFailureDoesNotFail(t *testing.T) {
	b := approved("2024-05-15")
	api := &mockBookingAPI{
		getByIDFunc: staticBooking(b),
		checkInFunc: func(ctx context.Context, id string) (*model.Booking, error) { return checkedIn(b), nil },
	}
	pub := &recordingPublisher{err: errors.New("broker down")}

	if _, err := newService(api, WithPublisher(pub)).CheckIn(context.Background(), "b1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ────────────────────────────────────────────────────────────────
// backend failures
// ────────────────────────────────────────────────────────────────

func TestFetch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"not found", &client.APIError{StatusCode: http.StatusNotFound}, apperrors.CodeNotFound},
		{"server error", &client.APIError{StatusCode: http.StatusBadGateway}, apperrors.CodeUpstream},
		{"forbidden", &client.APIError{StatusCode: http.StatusForbidden, Message: "not your booking"}, apperrors.CodeForbidden},
		{"backend down", &client.APIError{StatusCode: http.StatusServiceUnavailable}, apperrors.CodeUnavailable},
		{"other client error", &client.APIError{StatusCode: http.StatusUnprocessableEntity}, apperrors.CodeConflict},
		{"transport", errors.New("connection refused"), apperrors.CodeUpstream},
		{"timeout", context.DeadlineExceeded, apperrors.CodeTimeout},
		{"unauthorized without session", &client.APIError{StatusCode: http.StatusUnauthorized}, apperrors.CodeSessionExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockBookingAPI{
				getByIDFunc: func(context.Context, string) (*model.Booking, error) { return nil, tt.err },
			}
			_, err := newService(api).Eligibility(context.Background(), "b1")
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestFetch_EmptyID(t *testing.T) {
	api := &mockBookingAPI{}
	for _, id := range []string{"", "  \t"} {
		_, err := newService(api).Eligibility(context.Background(), id)
		if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
			t.Fatalf("expected invalid input for %q, got %v", id, err)
		}
		if !errors.Is(err, bookingserrors.ErrInvalidID) {
			t.Errorf("expected ErrInvalidID in chain, got %v", err)
		}
	}
}

func TestFetch_NilBookingIsNotFound(t *testing.T) {
	api := &mockBookingAPI{
		getByIDFunc: func(context.Context, string) (*model.Booking, error) { return nil, nil },
	}
	_, err := newService(api).Eligibility(context.Background(), "b1")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) || !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWithSession_RefreshesOnceAndRetries(t *testing.T) {
	calls := 0
	b := approved("2024-05-15")
	api := &mockBookingAPI{
		getByIDFunc: func(context.Context, string) (*model.Booking, error) {
			calls++
			if calls == 1 {
				return nil, &client.APIError{StatusCode: http.StatusUnauthorized}
			}
			return b, nil
		},
	}
	sess := &fakeSession{}

	view, err := newService(api, WithSessionRefresher(sess)).Eligibility(context.Background(), "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.calls != 1 || calls != 2 {
		t.Errorf("expected 1 refresh and 2 fetches, got %d and %d", sess.calls, calls)
	}
	if !view.CanCheckIn || !view.CheckIn.IsValid {
		t.Errorf("expected check-in allowed, got %+v", view.CheckIn)
	}
}

func TestWithSession_RefreshFailure(t *testing.T) {
	api := &mockBookingAPI{
		getByIDFunc: func(context.Context, string) (*model.Booking, error) {
			return nil, &client.APIError{StatusCode: http.StatusUnauthorized}
		},
	}
	sess := &fakeSession{err: errors.New("refresh rejected")}

	_, err := newService(api, WithSessionRefresher(sess)).Eligibility(context.Background(), "b1")
	if !apperrors.HasCode(err, apperrors.CodeSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
}

func TestWithSession_SecondUnauthorized(t *testing.T) {
	calls := 0
	api := &mockBookingAPI{
		getByIDFunc: func(context.Context, string) (*model.Booking, error) {
			calls++
			return nil, &client.APIError{StatusCode: http.StatusUnauthorized}
		},
	}
	sess := &fakeSession{}

	_, err := newService(api, WithSessionRefresher(sess)).Eligibility(context.Background(), "b1")
	if !apperrors.HasCode(err, apperrors.CodeSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly one retry, got %d calls", calls)
	}
}

// ────────────────────────────────────────────────────────────────
// CheckOut / Eligibility
// ────────────────────────────────────────────────────────────────

func TestCheckOut(t *testing.T) {
	b := checkedIn(approved("2024-05-15"))
	api := &mockBookingAPI{
		getByIDFunc: staticBooking(b),
		checkOutFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			cp := *b
			ts := testNow.Add(time.Hour)
			cp.CheckedOutAt = &ts
			cp.Status = model.StatusCompleted
			return &cp, nil
		},
	}
	pub := &recordingPublisher{}

	updated, err := newService(api, WithPublisher(pub)).CheckOut(context.Background(), "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.IsCheckedOut() {
		t.Errorf("expected checked-out booking")
	}
	if len(pub.msgs) != 1 || pub.msgs[0].GetEventType() != EventCheckedOut {
		t.Errorf("expected one checked_out event, got %d", len(pub.msgs))
	}
}

func TestCheckOut_NotCheckedIn(t *testing.T) {
	api := &mockBookingAPI{getByIDFunc: staticBooking(approved("2024-05-15"))}

	_, err := newService(api).CheckOut(context.Background(), "b1")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeNotEligible || appErr.Details["reason"] != string(eligibility.ReasonNotCheckedIn) {
		t.Fatalf("expected NOT_CHECKED_IN rejection, got %v", err)
	}
	if api.checkOutCalls != 0 {
		t.Errorf("backend must not be called")
	}
}

func TestEligibility_View(t *testing.T) {
	b := checkedIn(approved("2024-05-15"))
	api := &mockBookingAPI{getByIDFunc: staticBooking(b)}

	view, err := newService(api).Eligibility(context.Background(), "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.CanCheckIn || view.CheckIn.Reason != eligibility.ReasonAlreadyCheckedIn {
		t.Errorf("unexpected check-in verdict %+v", view.CheckIn)
	}
	if !view.CanCheckOut || !view.CheckOut.IsValid {
		t.Errorf("unexpected check-out verdict %+v", view.CheckOut)
	}
}
