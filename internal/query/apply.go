package query

import (
	"slices"
	"strings"

	"github.com/abgdnv/restaurant/internal/store"
)

// Matches reports whether o satisfies every criterion of the filter.
func (f FilterSpec) Matches(o *store.Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.CustomerID != "" && o.Customer.ID != f.CustomerID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(o.ID), needle) &&
			!strings.Contains(strings.ToLower(o.Customer.Name), needle) {
			return false
		}
	}
	if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.ValueMin != nil && o.Total.LessThan(*f.ValueMin) {
		return false
	}
	if f.ValueMax != nil && o.Total.GreaterThan(*f.ValueMax) {
		return false
	}
	return true
}

// Apply filters and sorts orders in memory. Orders with equal sort keys keep their input order,
// so feeding orders in insertion order gives the same result as the store.
func Apply(f FilterSpec, orders []store.Order) []store.Order {
	out := make([]store.Order, 0, len(orders))
	for i := range orders {
		if f.Matches(&orders[i]) {
			out = append(out, orders[i])
		}
	}
	slices.SortStableFunc(out, f.Sort.compare)
	return out
}

func (k SortKey) compare(a, b store.Order) int {
	switch k {
	case SortDateAsc:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortTotalDesc:
		return b.Total.Cmp(a.Total)
	case SortTotalAsc:
		return a.Total.Cmp(b.Total)
	default:
		return b.CreatedAt.Compare(a.CreatedAt)
	}
}
