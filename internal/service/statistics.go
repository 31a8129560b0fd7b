package service

import (
	"context"

	"github.com/abgdnv/restaurant/internal/query"
	"github.com/abgdnv/restaurant/internal/stats"
)

// StatisticsService computes dashboard metrics over a filtered order set.
type StatisticsService interface {
	Compute(ctx context.Context, spec query.FilterSpec) (stats.Statistics, error)
}

// StatisticsCache is the cache-aside reader used for the unfiltered statistics.
type StatisticsCache interface {
	Get(ctx context.Context, key string, load func(ctx context.Context) (stats.Statistics, error)) (stats.Statistics, error)
}

var _ StatisticsService = (*Stats)(nil)

// Stats implements StatisticsService on top of the order listing.
type Stats struct {
	orders OrderService
	cache  StatisticsCache
}

func NewStatisticsService(orders OrderService, cache StatisticsCache) *Stats {
	return &Stats{orders: orders, cache: cache}
}

// Compute lists the orders matching spec and aggregates them. Only unfiltered results are cached,
// one entry per sort key.
func (s *Stats) Compute(ctx context.Context, spec query.FilterSpec) (stats.Statistics, error) {
	load := func(ctx context.Context) (stats.Statistics, error) {
		orders, err := s.orders.List(ctx, spec)
		if err != nil {
			return stats.Statistics{}, err
		}
		return stats.Compute(orders), nil
	}
	if s.cache == nil || !spec.IsUnfiltered() {
		return load(ctx)
	}
	return s.cache.Get(ctx, StatisticsCacheKey(spec.Sort), load)
}
