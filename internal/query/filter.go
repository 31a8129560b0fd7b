// Package query parses order listing filters and evaluates them either in the store or in memory.
package query

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/abgdnv/restaurant/internal/store"
	"github.com/shopspring/decimal"
)

type SortKey string

const (
	SortDateDesc  SortKey = "data_desc"
	SortDateAsc   SortKey = "data_asc"
	SortTotalDesc SortKey = "valor_desc"
	SortTotalAsc  SortKey = "valor_asc"
)

var sortKeys = map[string]SortKey{
	"data_desc":  SortDateDesc,
	"data_asc":   SortDateAsc,
	"valor_desc": SortTotalDesc,
	"valor_asc":  SortTotalAsc,
	"date_desc":  SortDateDesc,
	"date_asc":   SortDateAsc,
	"total_desc": SortTotalDesc,
	"total_asc":  SortTotalAsc,
}

// SortKeys lists the canonical sort keys, aliases excluded.
func SortKeys() []SortKey {
	return []SortKey{SortDateDesc, SortDateAsc, SortTotalDesc, SortTotalAsc}
}

// matchAll is the sentinel that disables the status and customer criteria.
const matchAll = "all"

const dateLayout = "2006-01-02"

// endOfDay is added to a calendar date to reach its last included millisecond.
const endOfDay = 24*time.Hour - time.Millisecond

// FilterSpec is a validated order listing filter. Zero-valued fields impose no constraint.
type FilterSpec struct {
	Status     store.OrderStatus
	CustomerID string
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time
	ValueMin   *decimal.Decimal
	ValueMax   *decimal.Decimal
	Sort       SortKey
}

// ParseFilter validates the listing query parameters. Calendar dates are interpreted in loc.
// Any malformed value yields ErrInvalidInput.
func ParseFilter(values url.Values, loc *time.Location) (FilterSpec, error) {
	if loc == nil {
		loc = time.UTC
	}
	spec := FilterSpec{Sort: SortDateDesc}

	if v := strings.TrimSpace(values.Get("status")); v != "" && v != matchAll {
		st, ok := store.ParseOrderStatus(v)
		if !ok {
			return FilterSpec{}, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, v)
		}
		spec.Status = st
	}
	if v := strings.TrimSpace(values.Get("customerId")); v != matchAll {
		spec.CustomerID = v
	}
	spec.Search = strings.TrimSpace(values.Get("search"))

	var err error
	if spec.DateFrom, err = parseTime(values.Get("dateFrom"), loc, false); err != nil {
		return FilterSpec{}, fmt.Errorf("%w: dateFrom: %w", apperrors.ErrInvalidInput, err)
	}
	if spec.DateTo, err = parseTime(values.Get("dateTo"), loc, true); err != nil {
		return FilterSpec{}, fmt.Errorf("%w: dateTo: %w", apperrors.ErrInvalidInput, err)
	}
	if spec.ValueMin, err = parseDecimal(values.Get("valueMin")); err != nil {
		return FilterSpec{}, fmt.Errorf("%w: valueMin: %w", apperrors.ErrInvalidInput, err)
	}
	if spec.ValueMax, err = parseDecimal(values.Get("valueMax")); err != nil {
		return FilterSpec{}, fmt.Errorf("%w: valueMax: %w", apperrors.ErrInvalidInput, err)
	}

	if v := strings.TrimSpace(values.Get("sort")); v != "" {
		key, ok := sortKeys[v]
		if !ok {
			return FilterSpec{}, fmt.Errorf("%w: unknown sort %q", apperrors.ErrInvalidInput, v)
		}
		spec.Sort = key
	}
	return spec, nil
}

// parseTime accepts a calendar date or an RFC 3339 instant. A calendar date used as an
// upper bound extends to 23:59:59.999 of that day.
func parseTime(v string, loc *time.Location, upper bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateLayout, v, loc); err == nil {
		if upper {
			t = t.Add(endOfDay)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", v)
	}
	return &t, nil
}

func parseDecimal(v string) (*decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", v)
	}
	return &d, nil
}

// IsUnfiltered reports whether the filter selects every order. Sort is ignored.
func (f FilterSpec) IsUnfiltered() bool {
	return f.Status == "" && f.CustomerID == "" && f.Search == "" &&
		f.DateFrom == nil && f.DateTo == nil && f.ValueMin == nil && f.ValueMax == nil
}

// ToQuery translates the filter into the store query language.
func (f FilterSpec) ToQuery() store.Query {
	var where []store.Condition
	if f.Status != "" {
		where = append(where, store.Eq(store.FieldStatus, f.Status))
	}
	if f.CustomerID != "" {
		where = append(where, store.Eq(store.FieldCustomerID, f.CustomerID))
	}
	if f.Search != "" {
		where = append(where, store.AnyOf(
			store.IContains(store.FieldID, f.Search),
			store.IContains(store.FieldCustomerName, f.Search),
		))
	}
	if f.DateFrom != nil {
		where = append(where, store.Gte(store.FieldCreatedAt, *f.DateFrom))
	}
	if f.DateTo != nil {
		where = append(where, store.Lte(store.FieldCreatedAt, *f.DateTo))
	}
	if f.ValueMin != nil {
		where = append(where, store.Gte(store.FieldTotal, *f.ValueMin))
	}
	if f.ValueMax != nil {
		where = append(where, store.Lte(store.FieldTotal, *f.ValueMax))
	}
	return store.Query{Where: where, Sort: f.Sort.toStoreSort()}
}

func (k SortKey) toStoreSort() store.Sort {
	switch k {
	case SortDateAsc:
		return store.Sort{Field: store.FieldCreatedAt}
	case SortTotalDesc:
		return store.Sort{Field: store.FieldTotal, Desc: true}
	case SortTotalAsc:
		return store.Sort{Field: store.FieldTotal}
	default:
		return store.DefaultSort
	}
}
