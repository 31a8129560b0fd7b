package store

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// money is rendered as a JSON number
	decimal.MarshalJSONWithoutQuotes = true
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled}

// ParseOrderStatus returns the status named by s, or false when s is not a known status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Staying in the same status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusPreparing
	case StatusPreparing:
		return next == StatusReady
	case StatusReady:
		return next == StatusDelivered
	}
	return false
}

type ProductCategory string

const (
	CategoryBeverage ProductCategory = "beverage"
	CategoryFood     ProductCategory = "food"
	CategoryDessert  ProductCategory = "dessert"
	CategoryOther    ProductCategory = "other"
)

// Valid reports whether c is one of the known categories.
func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryBeverage, CategoryFood, CategoryDessert, CategoryOther:
		return true
	}
	return false
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    ProductCategory `json:"category"`
	Quantity    int             `json:"quantity"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CustomerRef is the customer snapshot embedded in an order.
type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrderLine is a product snapshot taken when the order was placed.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns price × quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID        string          `json:"id"`
	Customer  CustomerRef     `json:"customer"`
	Lines     []OrderLine     `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Seq is the store-assigned insertion sequence, used as the sort tie-break.
	Seq int64 `json:"-"`
}

// LinesTotal sums the subtotals of all lines.
func LinesTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (o Order) clone() Order {
	o.Lines = append([]OrderLine(nil), o.Lines...)
	return o
}
