package cache

import (
	"context"
	"time"
)

// Store represents a shared cache interface used across the application.
// Implementations are best-effort: the resolver and creation paths must keep
// working when a Store is nil or unreachable.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
