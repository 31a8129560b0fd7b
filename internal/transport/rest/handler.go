// Package rest provides the HTTP API of the restaurant service.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/abgdnv/restaurant/internal/service"
	"github.com/abgdnv/restaurant/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Services groups the use cases exposed over HTTP.
type Services struct {
	Orders     service.OrderService
	Customers  service.CustomerService
	Products   service.ProductService
	Statistics service.StatisticsService
}

type Handler struct {
	services Services
	checks   []ReadinessCheck
	location *time.Location
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the API handler. Calendar dates in filters are read in location.
func NewHandler(services Services, location *time.Location, logger *slog.Logger, checks ...ReadinessCheck) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		services: services,
		checks:   checks,
		location: location,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the API, probe and metrics routes.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindOrder)
				r.Put("/status", h.ChangeOrderStatus)
			})
		})
		r.Get("/statistics", h.Statistics)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindCustomer)
				r.Put("/", h.UpdateCustomer)
				r.Delete("/", h.DeleteCustomer)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindProduct)
				r.Put("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
				r.Put("/stock", h.SetProductStock)
			})
		})
	})

	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())
}

// HealthCheck is the liveness probe.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Ready runs every readiness check concurrently and fails if any of them does.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	eg, ctx := errgroup.WithContext(r.Context())
	for _, check := range h.checks {
		eg.Go(func() error { return check(ctx) })
	}
	if err := eg.Wait(); err != nil {
		mLogger.ErrorContext(r.Context(), "Readiness probe failed", "error", err)
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Service is not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
}

type insufficientStockResponse struct {
	Error       string `json:"error"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
}

// respondServiceError maps a service failure to its HTTP status.
// fallback is the message used for unexpected errors, whose details are only logged.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	var stockErr *apperrors.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		logger.WarnContext(r.Context(), "Insufficient stock", "product_id", stockErr.ProductID, "available", stockErr.Available)
		web.RespondJSON(w, logger, http.StatusConflict, insufficientStockResponse{
			Error:       stockErr.Error(),
			ProductID:   stockErr.ProductID,
			ProductName: stockErr.ProductName,
			Available:   stockErr.Available,
			Requested:   stockErr.Requested,
		})
	case errors.Is(err, apperrors.ErrInvalidInput):
		logger.WarnContext(r.Context(), "Invalid input", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		logger.WarnContext(r.Context(), "Record not found", "error", err)
		web.RespondError(w, logger, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		logger.WarnContext(r.Context(), "Concurrent modification", "error", err)
		web.RespondError(w, logger, http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrInvalidTransition):
		logger.WarnContext(r.Context(), "Rejected status transition", "error", err)
		web.RespondError(w, logger, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		logger.ErrorContext(r.Context(), "Store unavailable", "error", err)
		web.RespondError(w, logger, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		logger.ErrorContext(r.Context(), fallback, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, fallback)
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
