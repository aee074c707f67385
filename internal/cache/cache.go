package cache

import (
	"context"
	"time"
)

// Store is a short-lived, size-bounded result cache.
//
// A miss is never an error: callers must tolerate ok == false at any time.
// Errors are reserved for backend failures (Redis down, bad payload) and
// callers are expected to log them and carry on as if it were a miss.
type Store[V any] interface {
	// Get returns the value stored under key if it exists and has not expired.
	Get(ctx context.Context, key string) (value V, ok bool, err error)
	// Set stores value under key for ttl. ttl <= 0 keeps it until evicted.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Invalidate removes every entry whose key starts with prefix.
	Invalidate(ctx context.Context, prefix string) error
}
