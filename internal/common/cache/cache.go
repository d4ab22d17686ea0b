package cache

import (
	"context"
	"time"
)

// Cache is the subset of key/value operations the validator relies on:
// the remote quota counter and the question catalog read-through layer.
type Cache interface {
	// Get returns "" with a nil error when the key is missing.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value; a zero ttl never expires.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Del(ctx context.Context, keys ...string) error

	// Incr increments the integer at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)

	Expire(ctx context.Context, key string, ttl time.Duration) error

	Ping(ctx context.Context) error
	Close() error
}
