package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("booking ID is empty")

	ErrInvalidTimeRange = errors.New("end time must be after start time")

	// ErrSessionRejected means the backend answered 401 even after a refresh,
	// or no refresh was possible.
	ErrSessionRejected = errors.New("backend rejected the session token")
)
