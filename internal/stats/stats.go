// Package stats computes summary metrics over a set of orders.
package stats

import (
	"slices"

	"github.com/abgdnv/restaurant/internal/store"
	"github.com/shopspring/decimal"
)

// TopCustomersLimit caps the revenue ranking.
const TopCustomersLimit = 5

// UnknownCustomer groups orders whose customer snapshot carries no name.
const UnknownCustomer = "unknown"

type CustomerCount struct {
	Name   string `json:"name"`
	Orders int    `json:"orders"`
}

type ProductQuantity struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type CustomerRevenue struct {
	Name    string          `json:"name"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type Statistics struct {
	TotalOrders          int                       `json:"total_orders"`
	TotalRevenue         decimal.Decimal           `json:"total_revenue"`
	AverageTicket        decimal.Decimal           `json:"average_ticket"`
	OrdersByStatus       map[store.OrderStatus]int `json:"orders_by_status"`
	MostFrequentCustomer *CustomerCount            `json:"most_frequent_customer"`
	BestSellingProduct   *ProductQuantity          `json:"best_selling_product"`
	TopCustomers         []CustomerRevenue         `json:"top_customers"`
}

// customerAgg accumulates one customer's orders and revenue.
type customerAgg struct {
	name    string
	orders  int
	revenue decimal.Decimal
}

// Compute aggregates orders. It does not modify its input and is deterministic for a given input order.
// Ties in every ranking go to the entry encountered first.
func Compute(orders []store.Order) Statistics {
	st := Statistics{
		TotalRevenue:   decimal.Zero,
		AverageTicket:  decimal.Zero,
		OrdersByStatus: make(map[store.OrderStatus]int),
		TopCustomers:   []CustomerRevenue{},
	}

	// slices keep first-seen order for tie-breaking; the maps only index into them
	var customers []*customerAgg
	customerIdx := make(map[string]*customerAgg)
	var products []*ProductQuantity
	productIdx := make(map[string]*ProductQuantity)

	for _, o := range orders {
		st.TotalOrders++
		st.TotalRevenue = st.TotalRevenue.Add(o.Total)
		st.OrdersByStatus[o.Status]++

		name := o.Customer.Name
		if name == "" {
			name = UnknownCustomer
		}
		c, ok := customerIdx[name]
		if !ok {
			c = &customerAgg{name: name, revenue: decimal.Zero}
			customerIdx[name] = c
			customers = append(customers, c)
		}
		c.orders++
		c.revenue = c.revenue.Add(o.Total)

		for _, l := range o.Lines {
			p, ok := productIdx[l.Name]
			if !ok {
				p = &ProductQuantity{Name: l.Name}
				productIdx[l.Name] = p
				products = append(products, p)
			}
			p.Quantity += l.Quantity
		}
	}

	if st.TotalOrders > 0 {
		st.AverageTicket = st.TotalRevenue.Div(decimal.NewFromInt(int64(st.TotalOrders)))
	}

	for _, c := range customers {
		if st.MostFrequentCustomer == nil || c.orders > st.MostFrequentCustomer.Orders {
			st.MostFrequentCustomer = &CustomerCount{Name: c.name, Orders: c.orders}
		}
	}
	for _, p := range products {
		if st.BestSellingProduct == nil || p.Quantity > st.BestSellingProduct.Quantity {
			best := *p
			st.BestSellingProduct = &best
		}
	}

	ranked := slices.Clone(customers)
	// stable so equal revenue keeps first-encountered order
	slices.SortStableFunc(ranked, func(a, b *customerAgg) int { return b.revenue.Cmp(a.revenue) })
	for _, c := range ranked[:min(len(ranked), TopCustomersLimit)] {
		st.TopCustomers = append(st.TopCustomers, CustomerRevenue{Name: c.name, Revenue: c.revenue, Orders: c.orders})
	}
	return st
}
