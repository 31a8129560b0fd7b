package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/restaurant/internal/store"
	"github.com/go-playground/validator/v10"
)

// CustomerService defines the methods for managing customers.
type CustomerService interface {
	// FindByID returns ErrCustomerNotFound if no customer exists with the given ID.
	FindByID(ctx context.Context, id string) (*store.Customer, error)

	// FindAll returns every customer ordered by name.
	FindAll(ctx context.Context) ([]store.Customer, error)

	Create(ctx context.Context, dto CustomerDto) (*store.Customer, error)

	// Update returns ErrCustomerNotFound if no customer exists with the given ID.
	Update(ctx context.Context, id string, dto CustomerDto) (*store.Customer, error)

	// DeleteByID returns ErrCustomerNotFound if no customer exists with the given ID.
	// Existing orders keep their customer snapshot.
	DeleteByID(ctx context.Context, id string) error
}

// CustomerDto is the writable part of a customer.
type CustomerDto struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
}

var _ CustomerService = (*Customers)(nil)

// Customers implements CustomerService.
type Customers struct {
	store    store.Store
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewCustomerService(st store.Store, logger *slog.Logger) *Customers {
	return &Customers{
		store:    st,
		validate: validator.New(),
		logger:   logger.With("component", "customers"),
		now:      now,
	}
}

func (s *Customers) FindByID(ctx context.Context, id string) (*store.Customer, error) {
	return s.store.Customers().FindByID(ctx, id)
}

func (s *Customers) FindAll(ctx context.Context) ([]store.Customer, error) {
	return s.store.Customers().FindAll(ctx)
}

func (s *Customers) Create(ctx context.Context, dto CustomerDto) (*store.Customer, error) {
	if err := validateStruct(s.validate, dto); err != nil {
		return nil, err
	}
	ts := s.now()
	created, err := s.store.Customers().Create(ctx, store.Customer{
		Name:      dto.Name,
		Email:     dto.Email,
		Phone:     dto.Phone,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Customer created", "customer_id", created.ID)
	return created, nil
}

func (s *Customers) Update(ctx context.Context, id string, dto CustomerDto) (*store.Customer, error) {
	if err := validateStruct(s.validate, dto); err != nil {
		return nil, err
	}
	return s.store.Customers().Update(ctx, store.Customer{
		ID:        id,
		Name:      dto.Name,
		Email:     dto.Email,
		Phone:     dto.Phone,
		UpdatedAt: s.now(),
	})
}

func (s *Customers) DeleteByID(ctx context.Context, id string) error {
	if err := s.store.Customers().DeleteByID(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Customer deleted", "customer_id", id)
	return nil
}
