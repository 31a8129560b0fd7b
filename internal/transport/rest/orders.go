package rest

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/restaurant/internal/query"
	"github.com/abgdnv/restaurant/internal/service"
	"github.com/abgdnv/restaurant/pkg/web"
)

// ListOrders returns the orders matching the filter query parameters.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	spec, err := query.ParseFilter(r.URL.Query(), h.location)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Invalid filter")
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to list orders", "filter", r.URL.RawQuery)
	list, err := h.services.Orders.List(r.Context(), spec)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to fetch orders")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved order list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// CreateOrder reserves stock and places a new order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var draft service.OrderCreateDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &draft) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create order", "customer_id", draft.CustomerID, "lines", len(draft.Lines))
	created, err := h.services.Orders.Create(r.Context(), draft)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to create order")
		return
	}
	mLogger.InfoContext(r.Context(), "Order created successfully", slog.String("ID", created.ID))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// FindOrder retrieves an order by its ID.
func (h *Handler) FindOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.services.Orders.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to retrieve order with ID "+id)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// ChangeOrderStatus moves an order to the status in the body.
func (h *Handler) ChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var body service.StatusUpdateDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &body) {
		return
	}
	updated, err := h.services.Orders.ChangeStatus(r.Context(), id, body.Status)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to update order with ID "+id)
		return
	}
	mLogger.InfoContext(r.Context(), "Order status updated successfully", slog.String("ID", id), slog.String("status", string(updated.Status)))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Statistics aggregates the orders matching the filter query parameters.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	spec, err := query.ParseFilter(r.URL.Query(), h.location)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Invalid filter")
		return
	}
	result, err := h.services.Statistics.Compute(r.Context(), spec)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to compute statistics")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}
