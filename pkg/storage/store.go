// Package storage holds the persisted key/value session store and its
// backends. Values are opaque strings; callers own the encoding.
package storage

import (
	"context"
	"errors"
)

const (
	KeyToken         = "token"
	KeyRefreshToken  = "refreshToken"
	KeyUser          = "user"
	KeyTokenExpiry   = "tokenExpiry"
	KeyNotifications = "notifications"
)

var ErrNotFound = errors.New("key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// GetOptional returns "" without error when key is absent.
func GetOptional(ctx context.Context, s Store, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
