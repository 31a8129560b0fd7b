package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/abgdnv/restaurant/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ProductService defines the methods for managing the product catalog and its stock.
type ProductService interface {
	// FindByID returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*store.Product, error)

	// FindAll returns matching products ordered by name.
	FindAll(ctx context.Context, filter store.ProductFilter) ([]store.Product, error)

	Create(ctx context.Context, dto ProductCreateDto) (*store.Product, error)

	// Update changes the descriptive fields. Stock is only changed through SetStock and orders.
	Update(ctx context.Context, id string, dto ProductUpdateDto) (*store.Product, error)

	// SetStock replaces the stock quantity.
	SetStock(ctx context.Context, id string, dto StockDto) (*store.Product, error)

	// DeleteByID returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error
}

// ProductCreateDto is a new catalog entry. Available defaults to true.
type ProductCreateDto struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=500"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Category    string           `json:"category" validate:"required,oneof=beverage food dessert other"`
	Quantity    int              `json:"quantity" validate:"min=0"`
	Available   *bool            `json:"available"`
}

type ProductUpdateDto struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=500"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Category    string           `json:"category" validate:"required,oneof=beverage food dessert other"`
	Available   *bool            `json:"available" validate:"required"`
}

type StockDto struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

var _ ProductService = (*Products)(nil)

// Products implements ProductService.
type Products struct {
	store    store.Store
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewProductService(st store.Store, logger *slog.Logger) *Products {
	return &Products{
		store:    st,
		validate: validator.New(),
		logger:   logger.With("component", "products"),
		now:      now,
	}
}

func (s *Products) FindByID(ctx context.Context, id string) (*store.Product, error) {
	return s.store.Products().FindByID(ctx, id)
}

func (s *Products) FindAll(ctx context.Context, filter store.ProductFilter) ([]store.Product, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", apperrors.ErrInvalidInput, filter.Category)
	}
	return s.store.Products().FindAll(ctx, filter)
}

func (s *Products) Create(ctx context.Context, dto ProductCreateDto) (*store.Product, error) {
	if err := validateStruct(s.validate, dto); err != nil {
		return nil, err
	}
	if err := checkPrice(*dto.Price); err != nil {
		return nil, err
	}
	available := true
	if dto.Available != nil {
		available = *dto.Available
	}
	ts := s.now()
	created, err := s.store.Products().Create(ctx, store.Product{
		Name:        dto.Name,
		Description: dto.Description,
		Price:       *dto.Price,
		Category:    store.ProductCategory(dto.Category),
		Quantity:    dto.Quantity,
		Available:   available,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Product created", "product_id", created.ID, "quantity", created.Quantity)
	return created, nil
}

func (s *Products) Update(ctx context.Context, id string, dto ProductUpdateDto) (*store.Product, error) {
	if err := validateStruct(s.validate, dto); err != nil {
		return nil, err
	}
	if err := checkPrice(*dto.Price); err != nil {
		return nil, err
	}
	return s.store.Products().Update(ctx, store.Product{
		ID:          id,
		Name:        dto.Name,
		Description: dto.Description,
		Price:       *dto.Price,
		Category:    store.ProductCategory(dto.Category),
		Available:   *dto.Available,
		UpdatedAt:   s.now(),
	})
}

func (s *Products) SetStock(ctx context.Context, id string, dto StockDto) (*store.Product, error) {
	if err := validateStruct(s.validate, dto); err != nil {
		return nil, err
	}
	updated, err := s.store.Products().SetStock(ctx, id, *dto.Quantity)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Product stock set", "product_id", id, "quantity", updated.Quantity)
	return updated, nil
}

func (s *Products) DeleteByID(ctx context.Context, id string) error {
	if err := s.store.Products().DeleteByID(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Product deleted", "product_id", id)
	return nil
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", apperrors.ErrInvalidInput)
	}
	return nil
}
