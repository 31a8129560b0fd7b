package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Aside is a typed cache-aside reader. Concurrent misses for one key share a single load.
// Cache failures are logged and never fail the read.
//
// A load that overlaps an Invalidate is returned to its callers but not written back, and
// reads that start after the Invalidate do not join it. This holds within one process;
// writers in other processes sharing the same Redis can leave a value stale for up to one TTL.
type Aside[T any] struct {
	cache  Cache
	group  singleflight.Group
	ttl    time.Duration
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
}

func NewAside[T any](cache Cache, ttl time.Duration, logger *slog.Logger) *Aside[T] {
	return &Aside[T]{cache: cache, ttl: ttl, logger: logger.With("component", "cache")}
}

// Get returns the cached value for key, or calls load and caches its result.
func (a *Aside[T]) Get(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := a.lookup(ctx, key); ok {
		return v, nil
	}

	gen := a.currentGeneration()
	res, err, _ := a.group.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		if v, ok := a.lookup(ctx, key); ok {
			return v, nil
		}
		fresh, err := load(ctx)
		if err != nil {
			return fresh, err
		}
		data, err := json.Marshal(fresh)
		if err != nil {
			a.logger.WarnContext(ctx, "Failed to encode cache value", "key", key, "error", err)
			return fresh, nil
		}
		a.store(ctx, key, data, gen)
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Invalidate drops keys so the next Get reloads them. Loads already in flight are not cached.
func (a *Aside[T]) Invalidate(ctx context.Context, keys ...string) {
	a.mu.Lock()
	a.generation++
	a.mu.Unlock()
	if err := a.cache.Del(ctx, keys...); err != nil {
		a.logger.WarnContext(ctx, "Failed to invalidate cache", "keys", keys, "error", err)
	}
}

func (a *Aside[T]) currentGeneration() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// store writes data unless an Invalidate happened since the load started at gen.
func (a *Aside[T]) store(ctx context.Context, key string, data []byte, gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != gen {
		a.logger.DebugContext(ctx, "Discarding value loaded before invalidation", "key", key)
		return
	}
	if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
		a.logger.WarnContext(ctx, "Failed to write cache", "key", key, "error", err)
	}
}

func (a *Aside[T]) lookup(ctx context.Context, key string) (T, bool) {
	var v T
	data, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to read cache", "key", key, "error", err)
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		a.logger.WarnContext(ctx, "Failed to decode cache value", "key", key, "error", err)
		return v, false
	}
	return v, true
}
