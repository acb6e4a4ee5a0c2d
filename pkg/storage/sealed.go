package storage

import (
	"context"
	"fmt"

	"campusbook/pkg/sealer"
)

// SealedStore encrypts the listed keys before they reach the backing store.
// Other keys pass through untouched.
type SealedStore struct {
	inner  Store
	sealer *sealer.Sealer
	sealed map[string]bool
}

func NewSealedStore(inner Store, s *sealer.Sealer, keys ...string) *SealedStore {
	sealed := make(map[string]bool, len(keys))
	for _, k := range keys {
		sealed[k] = true
	}
	return &SealedStore{inner: inner, sealer: s, sealed: sealed}
}

func (s *SealedStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil || !s.sealed[key] {
		return v, err
	}
	pt, err := s.sealer.Open(v)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", key, err)
	}
	return pt, nil
}

func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	if !s.sealed[key] {
		return s.inner.Set(ctx, key, value)
	}
	ct, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("failed to seal %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, ct)
}

func (s *SealedStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

func (s *SealedStore) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}
