package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	bookingserrors "campusbook/internal/bookings/errors"
	"campusbook/internal/bookings/validator"
	"campusbook/internal/eligibility"
	"campusbook/pkg/client"
	apperrors "campusbook/pkg/errors"
	"campusbook/pkg/kafka"
	"campusbook/pkg/logger"
	"campusbook/pkg/model"
	"campusbook/pkg/sanitizer"
)

const (
	EventCheckedIn  = "booking.checked_in"
	EventCheckedOut = "booking.checked_out"

	eventSchemaVersion = "1"
	eventSource        = "campus-agent"
)

// BookingAPI is the slice of the remote booking API the service drives.
type BookingAPI interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	CheckIn(ctx context.Context, id string) (*model.Booking, error)
	CheckOut(ctx context.Context, id string) (*model.Booking, error)
}

// SessionRefresher renews the access token after the backend rejects it.
type SessionRefresher interface {
	Refresh(ctx context.Context) error
}

type Eligibility struct {
	Booking     *model.Booking     `json:"booking"`
	CheckIn     eligibility.Result `json:"checkIn"`
	CheckOut    eligibility.Result `json:"checkOut"`
	CanCheckIn  bool               `json:"canCheckIn"`
	CanCheckOut bool               `json:"canCheckOut"`
}

type BookingEvent struct {
	BookingID    string     `json:"bookingId"`
	FacilityID   string     `json:"facilityId,omitempty"`
	UserID       string     `json:"userId,omitempty"`
	Status       string     `json:"status"`
	CheckedInAt  *time.Time `json:"checkedInAt,omitempty"`
	CheckedOutAt *time.Time `json:"checkedOutAt,omitempty"`
	Warning      string     `json:"warning,omitempty"`
	OccurredAt   time.Time  `json:"occurredAt"`
}

type BookingService interface {
	Eligibility(ctx context.Context, id string) (*Eligibility, error)
	CheckIn(ctx context.Context, id string, confirmed bool) (*model.Booking, error)
	CheckOut(ctx context.Context, id string) (*model.Booking, error)
}

type bookingService struct {
	api       BookingAPI
	evaluator *eligibility.Evaluator
	validator *validator.BookingValidator
	session   SessionRefresher
	events    kafka.Publisher
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*bookingService)

func WithSessionRefresher(r SessionRefresher) Option {
	return func(s *bookingService) { s.session = r }
}

// WithPublisher enables booking events. Without it check-in/out still works.
func WithPublisher(p kafka.Publisher) Option {
	return func(s *bookingService) { s.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *bookingService) { s.now = now }
}

func NewBookingService(
	api BookingAPI,
	evaluator *eligibility.Evaluator,
	validator *validator.BookingValidator,
	log *logger.Logger,
	opts ...Option,
) BookingService {
	s := &bookingService{
		api:       api,
		evaluator: evaluator,
		validator: validator,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) Eligibility(ctx context.Context, id string) (*Eligibility, error) {
	booking, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &Eligibility{
		Booking:     booking,
		CheckIn:     s.checkIn(booking),
		CheckOut:    s.evaluator.ValidateCheckOut(booking),
		CanCheckOut: s.evaluator.CanShowCheckOutButton(booking),
	}
	view.CanCheckIn = view.CheckIn.IsValid && s.evaluator.CanShowCheckInButton(booking)
	return view, nil
}

func (s *bookingService) CheckIn(ctx context.Context, id string, confirmed bool) (*model.Booking, error) {
	booking, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	result := s.checkIn(booking)
	if !result.IsValid {
		return nil, apperrors.NotEligible(string(result.Reason), result.Error)
	}
	if result.HasWarning() && !confirmed {
		return nil, apperrors.ConfirmationRequired(result.WarningMessage)
	}

	var updated *model.Booking
	err = s.withSession(ctx, func() error {
		var callErr error
		updated, callErr = s.api.CheckIn(ctx, booking.ID)
		return callErr
	})
	if err != nil {
		return nil, s.upstreamError(err, id, "check in")
	}

	s.log.Info("Booking checked in", "id", booking.ID, "warning", result.WarningMessage != "")
	s.publish(ctx, EventCheckedIn, updated, result.WarningMessage)
	return updated, nil
}

func (s *bookingService) CheckOut(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	result := s.evaluator.ValidateCheckOut(booking)
	if !result.IsValid {
		return nil, apperrors.NotEligible(string(result.Reason), result.Error)
	}

	var updated *model.Booking
	err = s.withSession(ctx, func() error {
		var callErr error
		updated, callErr = s.api.CheckOut(ctx, booking.ID)
		return callErr
	})
	if err != nil {
		return nil, s.upstreamError(err, id, "check out")
	}

	s.log.Info("Booking checked out", "id", booking.ID)
	s.publish(ctx, EventCheckedOut, updated, "")
	return updated, nil
}

// checkIn runs the rule engine first so its reasons keep precedence, then
// rejects snapshots whose schedule is malformed.
func (s *bookingService) checkIn(booking *model.Booking) eligibility.Result {
	result := s.evaluator.ValidateCheckIn(booking)
	if !result.IsValid {
		return result
	}
	if err := s.validator.Validate(booking); err != nil {
		return eligibility.Result{
			Reason: eligibility.ReasonInvalidSchedule,
			Error:  err.Error(),
		}
	}
	return result
}

func (s *bookingService) fetch(ctx context.Context, id string) (*model.Booking, error) {
	if sanitizer.SanitizeID(id) == "" {
		return nil, apperrors.Wrap(bookingserrors.ErrInvalidID, apperrors.CodeInvalidInput, "Booking ID cannot be empty", http.StatusBadRequest)
	}

	var booking *model.Booking
	err := s.withSession(ctx, func() error {
		var callErr error
		booking, callErr = s.api.GetByID(ctx, id)
		return callErr
	})
	if err != nil {
		return nil, s.upstreamError(err, id, "fetch")
	}
	if booking == nil {
		return nil, notFound(id)
	}
	return booking, nil
}

// withSession retries call once after a refresh when the backend answers 401.
func (s *bookingService) withSession(ctx context.Context, call func() error) error {
	err := call()
	if !client.IsStatus(err, http.StatusUnauthorized) {
		return err
	}
	if s.session == nil {
		return bookingserrors.ErrSessionRejected
	}
	if refreshErr := s.session.Refresh(ctx); refreshErr != nil {
		return errors.Join(bookingserrors.ErrSessionRejected, refreshErr)
	}

	err = call()
	if client.IsStatus(err, http.StatusUnauthorized) {
		return bookingserrors.ErrSessionRejected
	}
	return err
}

func notFound(id string) error {
	appErr := apperrors.NotFoundWithID("Booking", id)
	appErr.Err = bookingserrors.ErrNotFound
	return appErr
}

func (s *bookingService) upstreamError(err error, id, op string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrSessionRejected):
		return apperrors.SessionExpired(err)
	case client.IsStatus(err, http.StatusNotFound):
		return notFound(id)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("Booking backend did not answer in time")
	}

	s.log.Error("Booking backend request failed", "id", id, "operation", op, "error", err)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusForbidden:
			return apperrors.Forbidden(apiErr.Message)
		case apiErr.StatusCode == http.StatusServiceUnavailable:
			return apperrors.Unavailable("Booking backend")
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return apperrors.Conflict(apiErr.Message)
		}
	}
	return apperrors.Upstream("Booking backend request failed", err)
}

func (s *bookingService) publish(ctx context.Context, eventType string, booking *model.Booking, warning string) {
	if s.events == nil || booking == nil {
		return
	}

	msg, err := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(BookingEvent{
			BookingID:    booking.ID,
			FacilityID:   booking.FacilityID,
			UserID:       booking.UserID,
			Status:       booking.Status.String(),
			CheckedInAt:  booking.CheckedInAt,
			CheckedOutAt: booking.CheckedOutAt,
			Warning:      warning,
			OccurredAt:   s.now().UTC(),
		}).
		WithEventType(eventType).
		WithSchemaVersion(eventSchemaVersion).
		WithSource(eventSource).
		BuildE()
	if err != nil {
		s.log.Error("Failed to build booking event", "id", booking.ID, "event_type", eventType, "error", err)
		return
	}

	if err := s.events.Publish(context.WithoutCancel(ctx), msg); err != nil {
		s.log.Warn("Failed to publish booking event", "id", booking.ID, "event_type", eventType, "error", err)
	}
}
