package ratelimit

import (
	"context"
	"time"
)

// Counter is the shared counter store backing the limiter.
// Increment must be atomic: concurrent callers on one key each observe a distinct value.
type Counter interface {
	// Increment adds one to key and returns the new value. The key expires after
	// ttl when it did not exist before.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Reset deletes the given keys.
	Reset(ctx context.Context, keys ...string) error
}
