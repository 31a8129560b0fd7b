// Package store provides persistence for customers, products and orders.
package store

import "context"

// Store groups the record stores and lets callers run several writes atomically.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type Store interface {
	Customers() CustomerStore
	Products() ProductStore
	Orders() OrderStore

	// InTx runs fn against a transactional view of the store. If fn returns an error,
	// every write made through that view is discarded. Nested calls join the outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error
}

// CustomerStore is an interface for customer storage operations.
type CustomerStore interface {
	// FindByID returns ErrCustomerNotFound if no customer exists with the given ID.
	FindByID(ctx context.Context, id string) (*Customer, error)

	// FindAll returns every customer ordered by name.
	FindAll(ctx context.Context) ([]Customer, error)

	// Create assigns a new ID and stores the customer.
	Create(ctx context.Context, c Customer) (*Customer, error)

	// Update overwrites name, email, phone and updated_at.
	// Returns ErrCustomerNotFound if no customer exists with the given ID.
	Update(ctx context.Context, c Customer) (*Customer, error)

	// DeleteByID returns ErrCustomerNotFound if no customer exists with the given ID.
	DeleteByID(ctx context.Context, id string) error
}

// ProductFilter narrows a product listing. Zero values impose no constraint.
type ProductFilter struct {
	Category  ProductCategory
	Available *bool
	// Search is a case-insensitive substring of the product name.
	Search string
}

// ProductStore is an interface for product storage operations.
type ProductStore interface {
	// FindByID returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindAll returns matching products ordered by name.
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, error)

	// Create assigns a new ID and stores the product.
	Create(ctx context.Context, p Product) (*Product, error)

	// Update overwrites the descriptive fields and updated_at. Quantity is left untouched.
	Update(ctx context.Context, p Product) (*Product, error)

	// SetStock replaces the stock quantity.
	SetStock(ctx context.Context, id string, quantity int) (*Product, error)

	// DecrementStock subtracts qty only if the current quantity is at least qty.
	// Returns *InsufficientStockError when it is not, ErrProductNotFound when the product is gone.
	DecrementStock(ctx context.Context, id string, qty int) error

	// IncrementStock adds qty. Returns ErrProductNotFound when the product is gone.
	IncrementStock(ctx context.Context, id string, qty int) error

	// DeleteByID returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error
}

// OrderStore is an interface for order storage operations. Orders are never deleted.
type OrderStore interface {
	// Insert assigns a new ID and insertion sequence and stores the order.
	Insert(ctx context.Context, o Order) (*Order, error)

	// FindByID returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id string) (*Order, error)

	// Find returns the orders matching q in q's sort order.
	Find(ctx context.Context, q Query) ([]Order, error)

	// UpdateStatus sets the status only if the stored status still equals expected.
	// Returns ErrOrderNotFound when the order is missing and ErrConflict when the status moved.
	UpdateStatus(ctx context.Context, id string, next, expected OrderStatus) (*Order, error)
}
