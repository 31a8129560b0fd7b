package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/abgdnv/restaurant/internal/query"
	"github.com/abgdnv/restaurant/internal/store"
	"github.com/abgdnv/restaurant/pkg/messaging"
	"github.com/abgdnv/restaurant/pkg/messaging/events"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// OrderService defines the order lifecycle operations.
type OrderService interface {
	// Create validates the draft, reserves stock for every line and stores the order as preparing.
	// Returns ErrCustomerNotFound, ErrProductNotFound or *InsufficientStockError before any write.
	Create(ctx context.Context, draft OrderCreateDto) (*store.Order, error)

	// ChangeStatus moves an order to status. Entering cancelled restocks every line once.
	// Returns ErrInvalidInput for an unknown status, ErrOrderNotFound, ErrConflict when the
	// order changed concurrently and ErrInvalidTransition when transitions are enforced.
	ChangeStatus(ctx context.Context, id string, status string) (*store.Order, error)

	// FindByID returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id string) (*store.Order, error)

	// List returns the orders matching spec in its sort order.
	List(ctx context.Context, spec query.FilterSpec) ([]store.Order, error)
}

// OrderCreateDto is a new order request. Prices and names are always taken from the product.
type OrderCreateDto struct {
	CustomerID string               `json:"customer_id" validate:"required"`
	Lines      []OrderLineCreateDto `json:"lines" validate:"required,gt=0,dive"`
	Notes      string               `json:"notes" validate:"max=500"`
}

type OrderLineCreateDto struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// StatusUpdateDto is the body of a status change request.
type StatusUpdateDto struct {
	Status string `json:"status" validate:"required"`
}

var _ OrderService = (*Orders)(nil)

// Orders implements OrderService.
type Orders struct {
	store           store.Store
	publisher       messaging.Publisher
	invalidator     Invalidator
	cfg             OrdersConfig
	validate        *validator.Validate
	logger          *slog.Logger
	now             func() time.Time
	ordersCreated   metric.Int64Counter
	ordersCancelled metric.Int64Counter
	stockUnitsMoved metric.Int64Counter
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(st store.Store, publisher messaging.Publisher, invalidator Invalidator, cfg OrdersConfig, logger *slog.Logger) *Orders {
	meter := otel.Meter("restaurant/orders")
	created, err := meter.Int64Counter("orders_created", metric.WithDescription("Total number of created orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_created counter: %v", err))
	}
	cancelled, err := meter.Int64Counter("orders_cancelled", metric.WithDescription("Total number of cancelled orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_cancelled counter: %v", err))
	}
	moved, err := meter.Int64Counter("stock_units_moved", metric.WithDescription("Stock units reserved or restocked by orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create stock_units_moved counter: %v", err))
	}
	if cfg.FilterMode == "" {
		cfg.FilterMode = FilterInStore
	}
	return &Orders{
		store:           st,
		publisher:       publisher,
		invalidator:     invalidator,
		cfg:             cfg,
		validate:        validator.New(),
		logger:          logger.With("component", "orders"),
		now:             now,
		ordersCreated:   created,
		ordersCancelled: cancelled,
		stockUnitsMoved: moved,
	}
}

func (s *Orders) Create(ctx context.Context, draft OrderCreateDto) (*store.Order, error) {
	if err := validateStruct(s.validate, draft); err != nil {
		return nil, err
	}

	customer, err := s.store.Customers().FindByID(ctx, draft.CustomerID)
	if err != nil {
		return nil, err
	}

	// the same product may appear on several lines; check the summed request
	requested := make(map[string]int, len(draft.Lines))
	productIDs := make([]string, 0, len(draft.Lines))
	for _, l := range draft.Lines {
		if _, seen := requested[l.ProductID]; !seen {
			productIDs = append(productIDs, l.ProductID)
		}
		requested[l.ProductID] += l.Quantity
	}
	products := make(map[string]*store.Product, len(productIDs))
	for _, id := range productIDs {
		p, err := s.store.Products().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Quantity < requested[id] {
			s.logger.WarnContext(ctx, "Insufficient stock", "product_id", id, "available", p.Quantity, "requested", requested[id])
			return nil, &apperrors.InsufficientStockError{ProductID: id, ProductName: p.Name, Available: p.Quantity, Requested: requested[id]}
		}
		products[id] = p
	}

	lines := make([]store.OrderLine, 0, len(draft.Lines))
	units := 0
	for _, l := range draft.Lines {
		p := products[l.ProductID]
		lines = append(lines, store.OrderLine{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: l.Quantity})
		units += l.Quantity
	}
	ts := s.now()
	order := store.Order{
		Customer:  store.CustomerRef{ID: customer.ID, Name: customer.Name},
		Lines:     lines,
		Total:     store.LinesTotal(lines),
		Status:    store.StatusPreparing,
		Notes:     draft.Notes,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	var created *store.Order
	err = s.store.InTx(ctx, func(tx store.Store) error {
		for _, l := range lines {
			// stock may have moved since the check above
			if err := tx.Products().DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.Orders().Insert(ctx, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Order created", "order_id", created.ID, "customer_id", customer.ID, "total", created.Total.String())
	s.ordersCreated.Add(ctx, 1)
	s.stockUnitsMoved.Add(ctx, int64(units))
	s.invalidator.Invalidate(ctx, StatisticsCacheKeys()...)
	s.publish(ctx, events.OrderCreatedEvent{
		Carrier:    carrier(ctx),
		OrderID:    created.ID,
		CustomerID: created.Customer.ID,
		Total:      created.Total,
		Lines:      len(created.Lines),
		CreatedAt:  created.CreatedAt,
	})
	return created, nil
}

func (s *Orders) ChangeStatus(ctx context.Context, id string, status string) (*store.Order, error) {
	next, ok := store.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, status)
	}
	current, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == next {
		return current, nil
	}
	if s.cfg.EnforceTransitions && !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, current.Status, next)
	}

	restock := next == store.StatusCancelled
	units := 0
	var updated *store.Order
	err = s.store.InTx(ctx, func(tx store.Store) error {
		units = 0
		if restock {
			// restock from the order as read, not from live product state
			for _, l := range current.Lines {
				err := tx.Products().IncrementStock(ctx, l.ProductID, l.Quantity)
				if errors.Is(err, apperrors.ErrProductNotFound) {
					s.logger.WarnContext(ctx, "Skipping restock of deleted product", "order_id", id, "product_id", l.ProductID)
					continue
				}
				if err != nil {
					return err
				}
				units += l.Quantity
			}
		}
		var err error
		updated, err = tx.Orders().UpdateStatus(ctx, id, next, current.Status)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.logger.WarnContext(ctx, "Order status changed concurrently", "order_id", id, "expected", current.Status)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Order status changed", "order_id", id, "from", current.Status, "to", next)
	if restock {
		s.ordersCancelled.Add(ctx, 1)
		s.stockUnitsMoved.Add(ctx, int64(units))
	}
	s.invalidator.Invalidate(ctx, StatisticsCacheKeys()...)
	s.publish(ctx, events.OrderStatusChangedEvent{
		Carrier:   carrier(ctx),
		OrderID:   id,
		From:      string(current.Status),
		To:        string(next),
		Restocked: restock,
		ChangedAt: updated.UpdatedAt,
	})
	return updated, nil
}

func (s *Orders) FindByID(ctx context.Context, id string) (*store.Order, error) {
	return s.store.Orders().FindByID(ctx, id)
}

func (s *Orders) List(ctx context.Context, spec query.FilterSpec) ([]store.Order, error) {
	if s.cfg.FilterMode == FilterInMemory {
		all, err := s.store.Orders().Find(ctx, store.Query{Sort: store.Sort{Field: store.FieldSeq}})
		if err != nil {
			return nil, err
		}
		return query.Apply(spec, all), nil
	}
	return s.store.Orders().Find(ctx, spec.ToQuery())
}

// publish delivers an event after commit. Failures are logged and never undo the write.
func (s *Orders) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "error", err)
	}
}

func carrier(ctx context.Context) propagation.MapCarrier {
	c := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, c)
	return c
}
