// Package service implements the order lifecycle, catalog management and statistics use cases.
package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/abgdnv/restaurant/internal/query"
	"github.com/go-playground/validator/v10"
)

const statisticsKeyPrefix = "statistics:all:"

// StatisticsCacheKey identifies the cached unfiltered statistics computed over orders in sort order.
// Rankings break ties by input order, so every sort key has its own entry.
func StatisticsCacheKey(sort query.SortKey) string {
	if sort == "" {
		sort = query.SortDateDesc
	}
	return statisticsKeyPrefix + string(sort)
}

// StatisticsCacheKeys lists every cached statistics entry.
func StatisticsCacheKeys() []string {
	sorts := query.SortKeys()
	keys := make([]string, 0, len(sorts))
	for _, sort := range sorts {
		keys = append(keys, StatisticsCacheKey(sort))
	}
	return keys
}

// Invalidator drops cached entries derived from orders.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

// FilterMode selects where order listing filters are evaluated.
type FilterMode string

const (
	// FilterInStore pushes the filter down to the store query.
	FilterInStore FilterMode = "store"
	// FilterInMemory loads every order and filters in the service.
	FilterInMemory FilterMode = "memory"
)

// OrdersConfig tunes the order lifecycle.
type OrdersConfig struct {
	// EnforceTransitions rejects status moves outside the lifecycle graph.
	EnforceTransitions bool
	FilterMode         FilterMode
}

func now() time.Time {
	// storage keeps microseconds
	return time.Now().UTC().Truncate(time.Microsecond)
}

func validateStruct(v *validator.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	return nil
}
