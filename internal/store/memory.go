package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memData struct {
	customers map[string]Customer
	products  map[string]Product
	orders    map[string]Order
	seq       int64
}

func (d memData) clone() memData {
	orders := make(map[string]Order, len(d.orders))
	for id, o := range d.orders {
		orders[id] = o.clone()
	}
	return memData{
		customers: maps.Clone(d.customers),
		products:  maps.Clone(d.products),
		orders:    orders,
		seq:       d.seq,
	}
}

type memState struct {
	mu   sync.RWMutex
	data memData
}

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore implements Store using maps guarded by a single lock.
// A transaction holds the write lock for its whole duration and restores a snapshot on failure.
type InMemoryStore struct {
	st   *memState
	inTx bool
}

// NewInMemoryStore creates a new, empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{st: &memState{data: memData{
		customers: make(map[string]Customer),
		products:  make(map[string]Product),
		orders:    make(map[string]Order),
	}}}
}

func (s *InMemoryStore) Customers() CustomerStore { return memCustomers{s} }
func (s *InMemoryStore) Products() ProductStore   { return memProducts{s} }
func (s *InMemoryStore) Orders() OrderStore       { return memOrders{s} }

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable("begin transaction", err)
	}
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	snapshot := s.st.data.clone()
	if err := fn(&InMemoryStore{st: s.st, inTx: true}); err != nil {
		s.st.data = snapshot
		return err
	}
	return nil
}

// read and write take the lock unless the caller already holds it through InTx.
func (s *InMemoryStore) read() func() {
	if s.inTx {
		return func() {}
	}
	s.st.mu.RLock()
	return s.st.mu.RUnlock
}

func (s *InMemoryStore) write() func() {
	if s.inTx {
		return func() {}
	}
	s.st.mu.Lock()
	return s.st.mu.Unlock
}

type memCustomers struct{ s *InMemoryStore }

func (m memCustomers) FindByID(_ context.Context, id string) (*Customer, error) {
	defer m.s.read()()
	c, ok := m.s.st.data.customers[id]
	if !ok {
		return nil, apperrors.CustomerNotFound(id)
	}
	return &c, nil
}

func (m memCustomers) FindAll(context.Context) ([]Customer, error) {
	defer m.s.read()()
	list := slices.Collect(maps.Values(m.s.st.data.customers))
	slices.SortFunc(list, func(a, b Customer) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return list, nil
}

func (m memCustomers) Create(_ context.Context, c Customer) (*Customer, error) {
	defer m.s.write()()
	c.ID = uuid.NewString()
	m.s.st.data.customers[c.ID] = c
	return &c, nil
}

func (m memCustomers) Update(_ context.Context, c Customer) (*Customer, error) {
	defer m.s.write()()
	existing, ok := m.s.st.data.customers[c.ID]
	if !ok {
		return nil, apperrors.CustomerNotFound(c.ID)
	}
	existing.Name = c.Name
	existing.Email = c.Email
	existing.Phone = c.Phone
	existing.UpdatedAt = c.UpdatedAt
	m.s.st.data.customers[c.ID] = existing
	return &existing, nil
}

func (m memCustomers) DeleteByID(_ context.Context, id string) error {
	defer m.s.write()()
	if _, ok := m.s.st.data.customers[id]; !ok {
		return apperrors.CustomerNotFound(id)
	}
	delete(m.s.st.data.customers, id)
	return nil
}

type memProducts struct{ s *InMemoryStore }

func (m memProducts) FindByID(_ context.Context, id string) (*Product, error) {
	defer m.s.read()()
	p, ok := m.s.st.data.products[id]
	if !ok {
		return nil, apperrors.ProductNotFound(id)
	}
	return &p, nil
}

func (m memProducts) FindAll(_ context.Context, filter ProductFilter) ([]Product, error) {
	defer m.s.read()()
	search := strings.ToLower(filter.Search)
	list := make([]Product, 0, len(m.s.st.data.products))
	for _, p := range m.s.st.data.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Available != nil && p.Available != *filter.Available {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b Product) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return list, nil
}

func (m memProducts) Create(_ context.Context, p Product) (*Product, error) {
	defer m.s.write()()
	p.ID = uuid.NewString()
	m.s.st.data.products[p.ID] = p
	return &p, nil
}

func (m memProducts) Update(_ context.Context, p Product) (*Product, error) {
	defer m.s.write()()
	existing, ok := m.s.st.data.products[p.ID]
	if !ok {
		return nil, apperrors.ProductNotFound(p.ID)
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.Price = p.Price
	existing.Category = p.Category
	existing.Available = p.Available
	existing.UpdatedAt = p.UpdatedAt
	m.s.st.data.products[p.ID] = existing
	return &existing, nil
}

func (m memProducts) SetStock(_ context.Context, id string, quantity int) (*Product, error) {
	defer m.s.write()()
	p, ok := m.s.st.data.products[id]
	if !ok {
		return nil, apperrors.ProductNotFound(id)
	}
	p.Quantity = quantity
	p.UpdatedAt = time.Now().UTC()
	m.s.st.data.products[id] = p
	return &p, nil
}

func (m memProducts) DecrementStock(_ context.Context, id string, qty int) error {
	defer m.s.write()()
	p, ok := m.s.st.data.products[id]
	if !ok {
		return apperrors.ProductNotFound(id)
	}
	if p.Quantity < qty {
		return &apperrors.InsufficientStockError{ProductID: id, ProductName: p.Name, Available: p.Quantity, Requested: qty}
	}
	p.Quantity -= qty
	p.UpdatedAt = time.Now().UTC()
	m.s.st.data.products[id] = p
	return nil
}

func (m memProducts) IncrementStock(_ context.Context, id string, qty int) error {
	defer m.s.write()()
	p, ok := m.s.st.data.products[id]
	if !ok {
		return apperrors.ProductNotFound(id)
	}
	p.Quantity += qty
	p.UpdatedAt = time.Now().UTC()
	m.s.st.data.products[id] = p
	return nil
}

func (m memProducts) DeleteByID(_ context.Context, id string) error {
	defer m.s.write()()
	if _, ok := m.s.st.data.products[id]; !ok {
		return apperrors.ProductNotFound(id)
	}
	delete(m.s.st.data.products, id)
	return nil
}

type memOrders struct{ s *InMemoryStore }

func (m memOrders) Insert(_ context.Context, o Order) (*Order, error) {
	defer m.s.write()()
	m.s.st.data.seq++
	o = o.clone()
	o.ID = uuid.NewString()
	o.Seq = m.s.st.data.seq
	m.s.st.data.orders[o.ID] = o
	out := o.clone()
	return &out, nil
}

func (m memOrders) FindByID(_ context.Context, id string) (*Order, error) {
	defer m.s.read()()
	o, ok := m.s.st.data.orders[id]
	if !ok {
		return nil, apperrors.OrderNotFound(id)
	}
	o = o.clone()
	return &o, nil
}

func (m memOrders) Find(_ context.Context, q Query) ([]Order, error) {
	defer m.s.read()()
	list := make([]Order, 0)
	for _, o := range m.s.st.data.orders {
		if matchAll(&o, q.Where) {
			list = append(list, o.clone())
		}
	}
	// insertion order first so the stable sort keeps it for equal keys
	slices.SortFunc(list, func(a, b Order) int { return cmp.Compare(a.Seq, b.Seq) })
	sortBy := q.Sort
	if sortBy.Field == "" {
		sortBy = DefaultSort
	}
	slices.SortStableFunc(list, func(a, b Order) int {
		c := compareField(&a, &b, sortBy.Field)
		if sortBy.Desc {
			return -c
		}
		return c
	})
	return list, nil
}

func (m memOrders) UpdateStatus(_ context.Context, id string, next, expected OrderStatus) (*Order, error) {
	defer m.s.write()()
	o, ok := m.s.st.data.orders[id]
	if !ok {
		return nil, apperrors.OrderNotFound(id)
	}
	if o.Status != expected {
		return nil, apperrors.ErrConflict
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	m.s.st.data.orders[id] = o
	o = o.clone()
	return &o, nil
}

func matchAll(o *Order, conds []Condition) bool {
	for _, c := range conds {
		if !match(o, c) {
			return false
		}
	}
	return true
}

func match(o *Order, c Condition) bool {
	if len(c.Or) > 0 {
		for _, sub := range c.Or {
			if match(o, sub) {
				return true
			}
		}
		return false
	}
	switch c.Field {
	case FieldCreatedAt:
		t, ok := c.Value.(time.Time)
		return ok && compareOp(o.CreatedAt.Compare(t), c.Op)
	case FieldTotal:
		d, ok := c.Value.(decimal.Decimal)
		return ok && compareOp(o.Total.Cmp(d), c.Op)
	default:
		got, want := stringField(o, c.Field), toString(c.Value)
		if c.Op == OpIContains {
			return strings.Contains(strings.ToLower(got), strings.ToLower(want))
		}
		return compareOp(strings.Compare(got, want), c.Op)
	}
}

func compareOp(c int, op Op) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpGte:
		return c >= 0
	case OpLte:
		return c <= 0
	}
	return false
}

func compareField(a, b *Order, f Field) int {
	switch f {
	case FieldTotal:
		return a.Total.Cmp(b.Total)
	case FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case FieldSeq:
		return cmp.Compare(a.Seq, b.Seq)
	default:
		return strings.Compare(stringField(a, f), stringField(b, f))
	}
}

func stringField(o *Order, f Field) string {
	switch f {
	case FieldID:
		return o.ID
	case FieldStatus:
		return string(o.Status)
	case FieldCustomerID:
		return o.Customer.ID
	case FieldCustomerName:
		return o.Customer.Name
	}
	return ""
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case OrderStatus:
		return string(val)
	}
	return ""
}
