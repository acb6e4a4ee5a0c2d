// Package eligibility decides whether a booking may be checked in or checked
// out right now. Every function is pure: no I/O, no logging, no errors
// returned. Failures are reported inside Result.
package eligibility

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"campusbook/pkg/model"
)

const (
	earlyCheckInWindow = 30 * time.Minute
)

const (
	msgAlreadyCheckedIn   = "This booking has already been checked in"
	msgAlreadyCheckedOut  = "This booking has already been checked out"
	msgTooLate            = "Cannot check in: the booking date is more than 1 day past"
	msgNotCheckedIn       = "This booking has not been checked in yet"
	msgAlreadyCompleted   = "This booking has already been completed"
	msgInvalidBookingDate = "The booking date is missing or malformed"

	warnEarlyDay   = "You are checking in more than 1 day before the booking date"
	warnLateDay    = "You are checking in 1 day after the booking date"
	warnEarlyStart = "You are checking in more than 30 minutes before the start time"
	warnAfterEnd   = "You are checking in after the booking end time"
)

type Evaluator struct {
	now func() time.Time
	loc *time.Location
}

type Option func(*Evaluator)

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the time zone that "today" and the booking's
// time-of-day strings are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(e *Evaluator) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		now: time.Now,
		loc: time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) ValidateCheckIn(b *model.Booking) Result {
	if b == nil {
		return fail(ReasonInvalidSchedule, msgInvalidBookingDate)
	}
	if b.IsCheckedIn() {
		return fail(ReasonAlreadyCheckedIn, msgAlreadyCheckedIn)
	}
	// Check-out without check-in is inconsistent upstream data, still refuse it.
	if b.IsCheckedOut() {
		return fail(ReasonAlreadyCheckedOut, msgAlreadyCheckedOut)
	}
	if res, ok := checkInStatus(b.Status); !ok {
		return res
	}

	now := e.now().In(e.loc)
	offset, ok := e.dayOffset(b, now)
	if !ok {
		return fail(ReasonInvalidSchedule, msgInvalidBookingDate)
	}

	switch {
	case offset < -1:
		return fail(ReasonTooLate, msgTooLate)
	case offset > 1:
		return warn(warnEarlyDay)
	case offset == -1:
		return warn(warnLateDay)
	case offset == 0:
		return e.sameDayCheckIn(b, now)
	}
	return valid()
}

func (e *Evaluator) ValidateCheckOut(b *model.Booking) Result {
	if b == nil || !b.IsCheckedIn() {
		return fail(ReasonNotCheckedIn, msgNotCheckedIn)
	}
	if b.IsCheckedOut() {
		return fail(ReasonAlreadyCheckedOut, msgAlreadyCheckedOut)
	}

	switch b.Status {
	case model.StatusRejected, model.StatusCancelled:
		return fail(ReasonInvalidStatus, fmt.Sprintf("Cannot check out a booking with status %s", b.Status))
	case model.StatusCompleted:
		return fail(ReasonAlreadyCompleted, msgAlreadyCompleted)
	case model.StatusUnknown:
		return fail(ReasonUnknownStatus, "Cannot check out a booking with an unknown status")
	}
	return valid()
}

// CanShowCheckInButton is the cheap gate used by listings. It only shows the
// button for approved bookings that ValidateCheckIn would accept, so it is
// stricter than the validator for odd upstream states.
func (e *Evaluator) CanShowCheckInButton(b *model.Booking) bool {
	if b == nil || b.IsCheckedIn() || b.IsCheckedOut() {
		return false
	}
	if b.Status != model.StatusApproved {
		return false
	}
	offset, ok := e.dayOffset(b, e.now().In(e.loc))
	return ok && offset >= -1
}

func (e *Evaluator) CanShowCheckOutButton(b *model.Booking) bool {
	if b == nil || !b.IsCheckedIn() || b.IsCheckedOut() {
		return false
	}
	switch b.Status {
	case model.StatusRejected, model.StatusCancelled, model.StatusCompleted, model.StatusUnknown:
		return false
	}
	return true
}

func checkInStatus(status model.BookingStatus) (Result, bool) {
	switch status {
	case model.StatusApproved:
		return Result{}, true
	case model.StatusCheckedIn:
		return fail(ReasonAlreadyCheckedIn, msgAlreadyCheckedIn), false
	case model.StatusRejected, model.StatusCancelled, model.StatusCompleted, model.StatusNoShow:
		return fail(ReasonInvalidStatus, fmt.Sprintf("Cannot check in a booking with status %s", status)), false
	case model.StatusWaitingLecturerApproval, model.StatusWaitingAdminApproval, model.StatusPending:
		return fail(ReasonInvalidStatus, "Cannot check in a booking that is still awaiting approval"), false
	default:
		return fail(ReasonUnknownStatus, "Cannot check in a booking with an unknown status"), false
	}
}

// dayOffset is bookingDate minus today in whole days, both at local midnight.
func (e *Evaluator) dayOffset(b *model.Booking, now time.Time) (int, bool) {
	date, ok := b.Date(e.loc)
	if !ok {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
	// Calendar arithmetic rather than Sub, so DST days still count as one.
	d1 := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	d0 := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(d1.Sub(d0).Hours() / 24), true
}

func (e *Evaluator) sameDayCheckIn(b *model.Booking, now time.Time) Result {
	start, okStart := clockOn(now, b.StartTime, e.loc)
	end, okEnd := clockOn(now, b.EndTime, e.loc)

	if okStart && now.Before(start.Add(-earlyCheckInWindow)) {
		return warn(warnEarlyStart)
	}
	if okEnd && now.After(end) {
		return warn(warnAfterEnd)
	}
	return valid()
}

// clockOn places an "HH:mm" or "HH:mm:ss" string on day's date. Seconds are
// ignored.
func clockOn(day time.Time, clock string, loc *time.Location) (time.Time, bool) {
	h, m, ok := ParseClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc), true
}

// ParseClock reads the hour and minute of an "HH:mm[:ss]" string.
func ParseClock(clock string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, 0, false
		}
	}
	return hour, minute, true
}
