package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/abgdnv/restaurant/internal/store"
	"github.com/abgdnv/restaurant/pkg/messaging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject())
	}
	return out
}

// countingInvalidator counts invalidations per key.
type countingInvalidator struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingInvalidator) Invalidate(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	for _, key := range keys {
		c.calls[key]++
	}
}

func (c *countingInvalidator) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

type fixture struct {
	store       *store.InMemoryStore
	publisher   *recordingPublisher
	invalidator *countingInvalidator
	orders      *Orders
}

func newFixture(t *testing.T, cfg OrdersConfig) *fixture {
	t.Helper()
	f := &fixture{
		store:       store.NewInMemoryStore(),
		publisher:   &recordingPublisher{},
		invalidator: &countingInvalidator{},
	}
	f.orders = NewOrderService(f.store, f.publisher, f.invalidator, cfg, discardLogger)
	return f
}

func (f *fixture) customer(t *testing.T, name string) *store.Customer {
	t.Helper()
	c, err := NewCustomerService(f.store, discardLogger).Create(context.Background(), CustomerDto{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, name, price string, qty int) *store.Product {
	t.Helper()
	p := dec(price)
	created, err := NewProductService(f.store, discardLogger).Create(context.Background(), ProductCreateDto{
		Name: name, Price: &p, Category: "food", Quantity: qty,
	})
	require.NoError(t, err)
	return created
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}
