// Package errors provides the sentinel and typed errors shared by the store, service and transport layers.
package errors

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")
var ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
var ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
var ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)

var ErrInvalidInput = errors.New("invalid input")
var ErrInsufficientStock = errors.New("insufficient stock")
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrConflict reports that a record changed between read and conditional write.
var ErrConflict = errors.New("conflict: the record has been modified concurrently")

var ErrStoreUnavailable = errors.New("store unavailable")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")

// InsufficientStockError carries the product that could not satisfy a request.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// Is matches ErrInsufficientStock so callers can use errors.Is.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NotFoundError names the missing record while still matching its sentinel.
type NotFoundError struct {
	Kind error // one of ErrCustomerNotFound, ErrProductNotFound, ErrOrderNotFound
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Kind
}

func CustomerNotFound(id string) error { return &NotFoundError{Kind: ErrCustomerNotFound, ID: id} }
func ProductNotFound(id string) error  { return &NotFoundError{Kind: ErrProductNotFound, ID: id} }
func OrderNotFound(id string) error    { return &NotFoundError{Kind: ErrOrderNotFound, ID: id} }

// Unavailable wraps a low-level store failure.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
