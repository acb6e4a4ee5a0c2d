package session

import "errors"

// Every one of these ends the session. None is retried.
var (
	ErrNoRefreshToken = errors.New("no refresh token stored")

	ErrRefreshRequestFailed = errors.New("refresh request failed")

	ErrMalformedToken = errors.New("refresh response carried a malformed token")

	ErrSessionCleared = errors.New("session cleared by another instance")
)
