// Package kv provides the small key-value store injected into the
// identity layer. The portal uses it for locally remembered credentials
// (demo doctor code, remembered email) instead of ambient globals, so
// tests can swap in an isolated store.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent. Callers that treat
// absence as a normal outcome should check for it with errors.Is.
var ErrNotFound = errors.New("kv: key not found")

// Store is a minimal key-value store with TTL support.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
