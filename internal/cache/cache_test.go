package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type payload struct {
	Count int    `json:"count"`
	Name  string `json:"name"`
}

func Test_TTLCache_Expiry(t *testing.T) {
	// given
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	// when
	hit, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, okAfter, _ := c.Get(ctx, "k")

	// then
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), hit)
	assert.False(t, okAfter)
}

func Test_TTLCache_Del(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))

	require.NoError(t, c.Del(ctx, "a", "missing"))

	_, okA, _ := c.Get(ctx, "a")
	_, okB, _ := c.Get(ctx, "b")
	assert.False(t, okA)
	assert.True(t, okB)
}

func Test_Aside_CachesUntilInvalidated(t *testing.T) {
	// given
	ctx := context.Background()
	a := NewAside[payload](NewTTLCache(), time.Minute, discardLogger)
	loads := 0
	load := func(context.Context) (payload, error) {
		loads++
		return payload{Count: loads, Name: "stats"}, nil
	}

	// when
	first, err := a.Get(ctx, "k", load)
	require.NoError(t, err)
	second, err := a.Get(ctx, "k", load)
	require.NoError(t, err)
	a.Invalidate(ctx, "k")
	third, err := a.Get(ctx, "k", load)
	require.NoError(t, err)

	// then
	assert.Equal(t, payload{Count: 1, Name: "stats"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, third.Count)
	assert.Equal(t, 2, loads)
}

func Test_Aside_LoadErrorIsNotCached(t *testing.T) {
	// given
	ctx := context.Background()
	a := NewAside[payload](NewTTLCache(), time.Minute, discardLogger)
	boom := errors.New("store down")

	// when
	_, err := a.Get(ctx, "k", func(context.Context) (payload, error) { return payload{}, boom })
	got, err2 := a.Get(ctx, "k", func(context.Context) (payload, error) { return payload{Count: 7}, nil })

	// then
	assert.ErrorIs(t, err, boom)
	require.NoError(t, err2)
	assert.Equal(t, 7, got.Count)
}

func Test_Aside_CollapsesConcurrentMisses(t *testing.T) {
	// given
	ctx := context.Background()
	a := NewAside[payload](NewTTLCache(), time.Minute, discardLogger)
	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (payload, error) {
		loads.Add(1)
		<-release
		return payload{Count: 1}, nil
	}

	// when
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.Get(ctx, "k", load)
			assert.NoError(t, err)
			assert.Equal(t, 1, got.Count)
		}()
	}
	// give the goroutines time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// then
	assert.LessOrEqual(t, loads.Load(), int32(2))
	_, err := a.Get(ctx, "k", func(context.Context) (payload, error) {
		t.Fatal("value must come from cache")
		return payload{}, nil
	})
	assert.NoError(t, err)
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (brokenCache) Del(context.Context, ...string) error { return errors.New("cache down") }

func Test_Aside_CacheFailuresFallBackToLoad(t *testing.T) {
	ctx := context.Background()
	a := NewAside[payload](brokenCache{}, time.Minute, discardLogger)

	got, err := a.Get(ctx, "k", func(context.Context) (payload, error) { return payload{Count: 3}, nil })
	a.Invalidate(ctx, "k")

	require.NoError(t, err)
	assert.Equal(t, 3, got.Count)
}

func Test_Aside_LoadOverlappingInvalidateIsNotCached(t *testing.T) {
	// given
	ctx := context.Background()
	a := NewAside[payload](NewTTLCache(), time.Minute, discardLogger)
	loads := 0
	load := func(context.Context) (payload, error) {
		loads++
		if loads == 1 {
			// an order write lands while the first load is reading
			a.Invalidate(ctx, "k")
		}
		return payload{Count: loads}, nil
	}

	// when
	first, err := a.Get(ctx, "k", load)
	require.NoError(t, err)
	second, err := a.Get(ctx, "k", load)
	require.NoError(t, err)
	third, err := a.Get(ctx, "k", load)
	require.NoError(t, err)

	// then
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 2, second.Count)
	assert.Equal(t, second, third)
	assert.Equal(t, 2, loads)
}

func Test_Aside_ReadAfterInvalidateDoesNotJoinEarlierLoad(t *testing.T) {
	// given
	ctx := context.Background()
	a := NewAside[payload](NewTTLCache(), time.Minute, discardLogger)
	started := make(chan struct{})
	release := make(chan struct{})
	staleDone := make(chan payload)
	go func() {
		got, err := a.Get(ctx, "k", func(context.Context) (payload, error) {
			close(started)
			<-release
			return payload{Name: "stale"}, nil
		})
		assert.NoError(t, err)
		staleDone <- got
	}()
	<-started

	// when
	a.Invalidate(ctx, "k")
	fresh, err := a.Get(ctx, "k", func(context.Context) (payload, error) {
		return payload{Name: "fresh"}, nil
	})
	close(release)
	stale := <-staleDone
	cached, err2 := a.Get(ctx, "k", func(context.Context) (payload, error) {
		t.Fatal("value must come from cache")
		return payload{}, nil
	})

	// then
	require.NoError(t, err)
	require.NoError(t, err2)
	assert.Equal(t, "fresh", fresh.Name)
	assert.Equal(t, "stale", stale.Name)
	assert.Equal(t, "fresh", cached.Name)
}

func Test_Aside_InvalidateDropsEveryKey(t *testing.T) {
	// given
	ctx := context.Background()
	a := NewAside[payload](NewTTLCache(), time.Minute, discardLogger)
	for _, key := range []string{"a", "b"} {
		_, err := a.Get(ctx, key, func(context.Context) (payload, error) { return payload{Name: key}, nil })
		require.NoError(t, err)
	}

	// when
	a.Invalidate(ctx, "a", "b")

	// then
	for _, key := range []string{"a", "b"} {
		got, err := a.Get(ctx, key, func(context.Context) (payload, error) { return payload{Name: "reloaded"}, nil })
		require.NoError(t, err)
		assert.Equal(t, "reloaded", got.Name, key)
	}
}
