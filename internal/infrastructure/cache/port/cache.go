package port

import (
	"context"
	"errors"
	"time"
)

// Cache is a string key-value store with per-key expiry. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get returns ErrMiss when key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value for ttl. ttl <= 0 keeps the key until evicted.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// GetMany returns the values that exist among keys. Absent keys are left out.
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	// SetMany stores every entry with the same ttl in one round trip.
	SetMany(ctx context.Context, entries map[string]string, ttl time.Duration) error
	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// ErrMiss signals a cache miss, as opposed to a transport failure.
var ErrMiss = errors.New("cache: miss")
