package port

import (
	"context"
	"time"
)

// CacheStore is a byte-value store with per-key TTL. The backing store
// (shared external vs in-process) is chosen once at startup; callers never
// branch on which is active.
type CacheStore interface {
	// Get returns the value and true on a hit, or false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes the value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Name identifies the backend ("redis", "memory") for health reporting.
	Name() string
}
