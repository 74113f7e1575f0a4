package repository

import (
	"context"
	"time"
)

// CacheRepository is the key-value store behind QR expiry tracking and the
// idempotency gate. A zero ttl means no expiry.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Purger is implemented by caches that keep expired entries on disk until
// they are swept.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}
