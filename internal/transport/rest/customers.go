package rest

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/restaurant/internal/service"
	"github.com/abgdnv/restaurant/pkg/web"
)

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.services.Customers.FindAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to fetch customers")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.CustomerDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &dto) {
		return
	}
	created, err := h.services.Customers.Create(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to create customer")
		return
	}
	mLogger.InfoContext(r.Context(), "Customer created successfully", slog.String("ID", created.ID))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

func (h *Handler) FindCustomer(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.services.Customers.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to retrieve customer with ID "+id)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.CustomerDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &dto) {
		return
	}
	updated, err := h.services.Customers.Update(r.Context(), id, dto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to update customer with ID "+id)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.services.Customers.DeleteByID(r.Context(), id); err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to delete customer with ID "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
