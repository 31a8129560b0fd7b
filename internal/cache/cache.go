// Package cache provides byte caches (in-process and Redis) and a typed cache-aside helper.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values with a time to live.
type Cache interface {
	// Get returns the value and true on a hit, false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
