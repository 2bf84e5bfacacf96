package cache

import (
	"context"
	"time"
)

// Store represents the shared cache used across the application. It is always
// injected through constructors so tests can substitute a fake.
type Store interface {
	// Get returns the value for key when present and not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// GetStale returns the value for key even when its TTL has elapsed. Used
	// by the query executor to serve critical data while offline.
	GetStale(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the value under key with the supplied TTL. A non-positive
	// TTL stores the entry without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the supplied keys.
	Delete(ctx context.Context, keys ...string) error
	// InvalidatePrefix removes every entry whose key starts with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
	// IncrementWithTTL atomically increments a counter within a rolling window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
