package store

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory returns an empty store for a single test case.
type storeFactory func(t *testing.T) Store

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustCreateProduct(t *testing.T, s Store, name string, price string, qty int) *Product {
	t.Helper()
	p, err := s.Products().Create(context.Background(), Product{
		Name: name, Price: dec(price), Category: CategoryFood, Quantity: qty, Available: true,
		CreatedAt: baseTime, UpdatedAt: baseTime,
	})
	require.NoError(t, err)
	return p
}

func mustInsertOrder(t *testing.T, s Store, customer CustomerRef, total string, status OrderStatus, createdAt time.Time) *Order {
	t.Helper()
	o, err := s.Orders().Insert(context.Background(), Order{
		Customer:  customer,
		Lines:     []OrderLine{{ProductID: "p", Name: "Item", Price: dec(total), Quantity: 1}},
		Total:     dec(total),
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	require.NoError(t, err)
	return o
}

func totals(orders []Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.Total.StringFixed(2)
	}
	return out
}

func testStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("customers crud", func(t *testing.T) {
		s := newStore(t)
		// given
		bob, err := s.Customers().Create(ctx, Customer{Name: "Bob", CreatedAt: baseTime, UpdatedAt: baseTime})
		require.NoError(t, err)
		_, err = s.Customers().Create(ctx, Customer{Name: "Alice", Email: "a@example.com", CreatedAt: baseTime, UpdatedAt: baseTime})
		require.NoError(t, err)
		require.NotEmpty(t, bob.ID)

		// when
		bob.Phone = "555"
		bob.UpdatedAt = baseTime.Add(time.Hour)
		updated, err := s.Customers().Update(ctx, *bob)
		require.NoError(t, err)
		all, err := s.Customers().FindAll(ctx)
		require.NoError(t, err)

		// then
		assert.Equal(t, "555", updated.Phone)
		require.Len(t, all, 2)
		assert.Equal(t, "Alice", all[0].Name)
		assert.Equal(t, "Bob", all[1].Name)

		require.NoError(t, s.Customers().DeleteByID(ctx, bob.ID))
		_, err = s.Customers().FindByID(ctx, bob.ID)
		assert.ErrorIs(t, err, apperrors.ErrCustomerNotFound)
		assert.ErrorIs(t, s.Customers().DeleteByID(ctx, bob.ID), apperrors.ErrCustomerNotFound)
		_, err = s.Customers().Update(ctx, Customer{ID: bob.ID, Name: "x"})
		assert.ErrorIs(t, err, apperrors.ErrCustomerNotFound)
	})

	t.Run("products filter and update", func(t *testing.T) {
		s := newStore(t)
		// given
		pizza := mustCreateProduct(t, s, "Pizza Margherita", "30.00", 5)
		_, err := s.Products().Create(ctx, Product{Name: "Cola", Price: dec("5.50"), Category: CategoryBeverage, Quantity: 10, Available: true, CreatedAt: baseTime, UpdatedAt: baseTime})
		require.NoError(t, err)
		_, err = s.Products().Create(ctx, Product{Name: "100%_Juice", Price: dec("7"), Category: CategoryBeverage, Quantity: 1, Available: false, CreatedAt: baseTime, UpdatedAt: baseTime})
		require.NoError(t, err)
		unavailable := false

		// when
		beverages, err := s.Products().FindAll(ctx, ProductFilter{Category: CategoryBeverage})
		require.NoError(t, err)
		hidden, err := s.Products().FindAll(ctx, ProductFilter{Available: &unavailable})
		require.NoError(t, err)
		searched, err := s.Products().FindAll(ctx, ProductFilter{Search: "MARGH"})
		require.NoError(t, err)
		literal, err := s.Products().FindAll(ctx, ProductFilter{Search: "0%_"})
		require.NoError(t, err)
		wildcard, err := s.Products().FindAll(ctx, ProductFilter{Search: "%"})
		require.NoError(t, err)

		// then
		require.Len(t, beverages, 2)
		assert.Equal(t, "100%_Juice", beverages[0].Name)
		assert.Equal(t, "Cola", beverages[1].Name)
		require.Len(t, hidden, 1)
		require.Len(t, searched, 1)
		assert.Equal(t, pizza.ID, searched[0].ID)
		assert.Len(t, literal, 1)
		assert.Len(t, wildcard, 1, "percent sign must match literally")

		pizza.Price = dec("32.90")
		pizza.Quantity = 999
		updated, err := s.Products().Update(ctx, *pizza)
		require.NoError(t, err)
		assert.True(t, dec("32.90").Equal(updated.Price))
		assert.Equal(t, 5, updated.Quantity, "update must not touch stock")

		stocked, err := s.Products().SetStock(ctx, pizza.ID, 12)
		require.NoError(t, err)
		assert.Equal(t, 12, stocked.Quantity)

		require.NoError(t, s.Products().DeleteByID(ctx, pizza.ID))
		_, err = s.Products().FindByID(ctx, pizza.ID)
		assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
	})

	t.Run("conditional stock decrement", func(t *testing.T) {
		s := newStore(t)
		// given
		p := mustCreateProduct(t, s, "Burger", "20", 3)

		// when
		require.NoError(t, s.Products().DecrementStock(ctx, p.ID, 2))
		err := s.Products().DecrementStock(ctx, p.ID, 2)

		// then
		var stockErr *apperrors.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 1, stockErr.Available)
		assert.Equal(t, 2, stockErr.Requested)
		assert.Equal(t, "Burger", stockErr.ProductName)
		found, err := s.Products().FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, found.Quantity)

		require.NoError(t, s.Products().IncrementStock(ctx, p.ID, 4))
		found, _ = s.Products().FindByID(ctx, p.ID)
		assert.Equal(t, 5, found.Quantity)

		assert.ErrorIs(t, s.Products().DecrementStock(ctx, "missing", 1), apperrors.ErrProductNotFound)
		assert.ErrorIs(t, s.Products().IncrementStock(ctx, "missing", 1), apperrors.ErrProductNotFound)
	})

	t.Run("orders insert and conditional status update", func(t *testing.T) {
		s := newStore(t)
		// given
		o, err := s.Orders().Insert(ctx, Order{
			Customer: CustomerRef{ID: "c1", Name: "Ana"},
			Lines: []OrderLine{
				{ProductID: "p1", Name: "Pizza", Price: dec("30.00"), Quantity: 2},
				{ProductID: "p2", Name: "Cola", Price: dec("5.5"), Quantity: 1},
			},
			Total:     dec("65.50"),
			Status:    StatusPreparing,
			Notes:     "no onions",
			CreatedAt: baseTime,
			UpdatedAt: baseTime,
		})
		require.NoError(t, err)
		require.NotEmpty(t, o.ID)

		// when
		found, err := s.Orders().FindByID(ctx, o.ID)
		require.NoError(t, err)

		// then
		assert.Equal(t, CustomerRef{ID: "c1", Name: "Ana"}, found.Customer)
		require.Len(t, found.Lines, 2)
		assert.Equal(t, "Pizza", found.Lines[0].Name)
		assert.True(t, dec("30").Equal(found.Lines[0].Price))
		assert.True(t, dec("65.5").Equal(found.Total))
		assert.Equal(t, "no onions", found.Notes)
		assert.True(t, baseTime.Equal(found.CreatedAt))

		updated, err := s.Orders().UpdateStatus(ctx, o.ID, StatusReady, StatusPreparing)
		require.NoError(t, err)
		assert.Equal(t, StatusReady, updated.Status)

		_, err = s.Orders().UpdateStatus(ctx, o.ID, StatusCancelled, StatusPreparing)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		_, err = s.Orders().UpdateStatus(ctx, "missing", StatusCancelled, StatusPreparing)
		assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
		_, err = s.Orders().FindByID(ctx, "missing")
		assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
	})

	t.Run("orders find filters and sorts", func(t *testing.T) {
		s := newStore(t)
		// given
		ana := CustomerRef{ID: "c1", Name: "Ana Souza"}
		bia := CustomerRef{ID: "c2", Name: "Bia"}
		o1 := mustInsertOrder(t, s, ana, "30", StatusPreparing, baseTime.Add(2*time.Hour))
		mustInsertOrder(t, s, bia, "10", StatusDelivered, baseTime.Add(time.Hour))
		mustInsertOrder(t, s, ana, "20", StatusPreparing, baseTime.Add(3*time.Hour))
		mustInsertOrder(t, s, bia, "20", StatusCancelled, baseTime)

		testCases := []struct {
			name   string
			query  Query
			expect []string
		}{
			{name: "default newest first", query: Query{}, expect: []string{"20.00", "30.00", "10.00", "20.00"}},
			{name: "total desc keeps insertion order on ties", query: Query{Sort: Sort{Field: FieldTotal, Desc: true}}, expect: []string{"30.00", "20.00", "20.00", "10.00"}},
			{name: "status", query: Query{Where: []Condition{Eq(FieldStatus, StatusPreparing)}, Sort: Sort{Field: FieldCreatedAt}}, expect: []string{"30.00", "20.00"}},
			{name: "customer", query: Query{Where: []Condition{Eq(FieldCustomerID, "c2")}, Sort: Sort{Field: FieldCreatedAt}}, expect: []string{"20.00", "10.00"}},
			{name: "total range", query: Query{Where: []Condition{Gte(FieldTotal, dec("15")), Lte(FieldTotal, dec("25"))}, Sort: Sort{Field: FieldCreatedAt}}, expect: []string{"20.00", "20.00"}},
			{name: "inverted range", query: Query{Where: []Condition{Gte(FieldTotal, dec("25")), Lte(FieldTotal, dec("15"))}}, expect: []string{}},
			{name: "created range", query: Query{Where: []Condition{Gte(FieldCreatedAt, baseTime.Add(time.Hour)), Lte(FieldCreatedAt, baseTime.Add(2*time.Hour))}, Sort: Sort{Field: FieldCreatedAt}}, expect: []string{"10.00", "30.00"}},
			{name: "search name or id", query: Query{Where: []Condition{AnyOf(IContains(FieldID, "souza"), IContains(FieldCustomerName, "souza"))}, Sort: Sort{Field: FieldTotal}}, expect: []string{"20.00", "30.00"}},
			{name: "search by id", query: Query{Where: []Condition{AnyOf(IContains(FieldID, o1.ID[:8]), IContains(FieldCustomerName, o1.ID[:8]))}}, expect: []string{"30.00"}},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				// when
				found, err := s.Orders().Find(ctx, tc.query)

				// then
				require.NoError(t, err)
				assert.Equal(t, tc.expect, totals(found))
			})
		}
	})

	t.Run("search folds non-ASCII case", func(t *testing.T) {
		s := newStore(t)
		// given
		elodie := mustInsertOrder(t, s, CustomerRef{ID: "c1", Name: "ÉLODIE Ñúñez"}, "30", StatusPreparing, baseTime)
		mustInsertOrder(t, s, CustomerRef{ID: "c2", Name: "Elodie Nunez"}, "20", StatusPreparing, baseTime.Add(time.Hour))
		creme := mustCreateProduct(t, s, "CRÈME BRÛLÉE", "12", 3)
		mustCreateProduct(t, s, "Creme brulee", "9", 3)

		testCases := []struct {
			name   string
			search string
		}{
			{name: "lower needle", search: "élodie ñú"},
			{name: "upper needle", search: "ÉLODIE ÑÚ"},
			{name: "mixed needle", search: "éLoDiE ñÚ"},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				// when
				found, err := s.Orders().Find(ctx, Query{Where: []Condition{IContains(FieldCustomerName, tc.search)}})

				// then
				require.NoError(t, err)
				require.Len(t, found, 1)
				assert.Equal(t, elodie.ID, found[0].ID)
			})
		}

		// when
		products, err := s.Products().FindAll(ctx, ProductFilter{Search: "crème brûlée"})

		// then
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, creme.ID, products[0].ID)
	})

	t.Run("transaction rolls back every write", func(t *testing.T) {
		s := newStore(t)
		// given
		a := mustCreateProduct(t, s, "A", "10", 5)
		b := mustCreateProduct(t, s, "B", "10", 1)

		// when
		err := s.InTx(ctx, func(tx Store) error {
			if err := tx.Products().DecrementStock(ctx, a.ID, 3); err != nil {
				return err
			}
			if _, err := tx.Orders().Insert(ctx, Order{Customer: CustomerRef{ID: "c", Name: "n"}, Lines: []OrderLine{}, Total: dec("1"), Status: StatusPreparing, CreatedAt: baseTime, UpdatedAt: baseTime}); err != nil {
				return err
			}
			return tx.Products().DecrementStock(ctx, b.ID, 2)
		})

		// then
		assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
		found, err := s.Products().FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, found.Quantity)
		orders, err := s.Orders().Find(ctx, Query{})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("transaction commits", func(t *testing.T) {
		s := newStore(t)
		// given
		a := mustCreateProduct(t, s, "A", "10", 5)

		// when
		err := s.InTx(ctx, func(tx Store) error {
			// nested calls join the outer transaction
			return tx.InTx(ctx, func(inner Store) error {
				return inner.Products().DecrementStock(ctx, a.ID, 5)
			})
		})

		// then
		require.NoError(t, err)
		found, err := s.Products().FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, found.Quantity)
		assert.NoError(t, s.Ping(ctx))
	})
}
