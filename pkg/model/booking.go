package model

import (
	"encoding/json"
	"strings"
	"time"
)

type BookingStatus int

const (
	StatusUnknown BookingStatus = iota
	StatusWaitingLecturerApproval
	StatusWaitingAdminApproval
	StatusPending
	StatusApproved
	StatusRejected
	StatusCancelled
	StatusCompleted
	StatusCheckedIn
	StatusNoShow
)

var statusNames = map[BookingStatus]string{
	StatusWaitingLecturerApproval: "WaitingLecturerApproval",
	StatusWaitingAdminApproval:    "WaitingAdminApproval",
	StatusPending:                 "Pending",
	StatusApproved:                "Approved",
	StatusRejected:                "Rejected",
	StatusCancelled:               "Cancelled",
	StatusCompleted:               "Completed",
	StatusCheckedIn:               "CheckedIn",
	StatusNoShow:                  "NoShow",
}

// AllStatuses lists every known status in declaration order.
var AllStatuses = []BookingStatus{
	StatusWaitingLecturerApproval,
	StatusWaitingAdminApproval,
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusCancelled,
	StatusCompleted,
	StatusCheckedIn,
	StatusNoShow,
}

// ParseBookingStatus matches case-insensitively and ignores '_', '-' and
// spaces, so "waiting_admin_approval" and "WaitingAdminApproval" are equal.
// Anything outside the closed set yields StatusUnknown.
func ParseBookingStatus(s string) BookingStatus {
	key := normalizeStatus(s)
	if key == "" {
		return StatusUnknown
	}
	for status, name := range statusNames {
		if normalizeStatus(name) == key {
			return status
		}
	}
	return StatusUnknown
}

func normalizeStatus(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case '_', '-', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s BookingStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s BookingStatus) IsKnown() bool {
	_, ok := statusNames[s]
	return ok
}

// IsAwaitingApproval reports the states where the booking has not yet been
// approved by a lecturer or an administrator.
func (s BookingStatus) IsAwaitingApproval() bool {
	switch s {
	case StatusWaitingLecturerApproval, StatusWaitingAdminApproval, StatusPending:
		return true
	default:
		return false
	}
}

func (s BookingStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *BookingStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseBookingStatus(raw)
	return nil
}

const (
	DateLayout = "2006-01-02"
)

type Booking struct {
	ID           string        `json:"id" validate:"required"`
	FacilityID   string        `json:"facilityId,omitempty"`
	FacilityName string        `json:"facilityName,omitempty"`
	UserID       string        `json:"userId,omitempty"`
	Purpose      string        `json:"purpose,omitempty" validate:"omitempty,max=500"`
	Status       BookingStatus `json:"status"`
	BookingDate  string        `json:"bookingDate" validate:"required,booking_date"`
	StartTime    string        `json:"startTime" validate:"required,clock_time"`
	EndTime      string        `json:"endTime" validate:"required,clock_time"`
	CheckedInAt  *time.Time    `json:"checkedInAt,omitempty"`
	CheckedOutAt *time.Time    `json:"checkedOutAt,omitempty"`
	CreatedAt    time.Time     `json:"createdAt,omitempty"`
}

// Date returns the calendar day of the booking in loc. The backend sends
// either a bare date or a full ISO timestamp; a timestamp is converted to loc
// before its day is taken.
func (b *Booking) Date(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	raw := strings.TrimSpace(b.BookingDate)

	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		ts = ts.In(loc)
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc), true
	}

	if len(raw) < len(DateLayout) {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, raw[:len(DateLayout)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func (b *Booking) IsCheckedIn() bool {
	return b.CheckedInAt != nil && !b.CheckedInAt.IsZero()
}

func (b *Booking) IsCheckedOut() bool {
	return b.CheckedOutAt != nil && !b.CheckedOutAt.IsZero()
}
