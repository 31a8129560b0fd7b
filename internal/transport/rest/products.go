package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/abgdnv/restaurant/internal/service"
	"github.com/abgdnv/restaurant/internal/store"
	"github.com/abgdnv/restaurant/pkg/web"
)

// ListProducts supports the category, available and search query parameters.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	filter, err := parseProductFilter(r)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Invalid filter")
		return
	}
	list, err := h.services.Products.FindAll(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to fetch products")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

func parseProductFilter(r *http.Request) (store.ProductFilter, error) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		Category: store.ProductCategory(q.Get("category")),
		Search:   q.Get("search"),
	}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			return store.ProductFilter{}, fmt.Errorf("%w: available must be a boolean", apperrors.ErrInvalidInput)
		}
		filter.Available = &available
	}
	return filter, nil
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.ProductCreateDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &dto) {
		return
	}
	created, err := h.services.Products.Create(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", slog.String("ID", created.ID))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

func (h *Handler) FindProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.services.Products.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to retrieve product with ID "+id)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.ProductUpdateDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &dto) {
		return
	}
	updated, err := h.services.Products.Update(r.Context(), id, dto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to update product with ID "+id)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// SetProductStock replaces the stock quantity of a product.
func (h *Handler) SetProductStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.StockDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &dto) {
		return
	}
	updated, err := h.services.Products.SetStock(r.Context(), id, dto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to update stock of product with ID "+id)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.services.Products.DeleteByID(r.Context(), id); err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to delete product with ID "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
