package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/domains/customers/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
	tenantmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant/middleware"
)

const notFoundMessage = "Customer not found"

type createRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type updateRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// Handler wires the customers service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("customers service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the customer endpoints on r. body wraps the routes that take
// a request body and runs after the permission check.
func (h *Handler) Routes(r chi.Router, body ...func(http.Handler) http.Handler) {
	read := tenantmiddleware.RequirePermission(tenant.PermRead)
	write := append(chi.Middlewares{tenantmiddleware.RequirePermission(tenant.PermWrite)}, body...)

	r.With(read).Get("/", h.List)
	r.With(write...).Post("/", h.Create)
	r.With(read).Get("/{id}", h.Get)
	r.With(write...).Patch("/{id}", h.Update)
	r.With(tenantmiddleware.RequirePermission(tenant.PermDelete)).Delete("/{id}", h.Delete)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, operation string) {
	httpapi.Fail(w, r, err, httpapi.Failure{Operation: operation, NotFound: notFoundMessage, Logger: h.logger})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.ParseID(r, "id")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidID)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	customer, err := h.svc.Get(r.Context(), tc, id)
	if err != nil {
		h.fail(w, r, err, "getCustomer")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, customer)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := httpapi.ParsePage(r)
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidQuery)
		return
	}
	query, ok := httpapi.QueryString(r, "q")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidQuery)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	result, err := h.svc.List(r.Context(), tc, service.ListInput{Page: page, Query: query})
	if err != nil {
		httpapi.Fail(w, r, err, httpapi.Failure{Operation: "listCustomers", Invalid: httpapi.MsgInvalidQuery, Logger: h.logger})
		return
	}
	httpapi.WriteList(w, result.Items, result.Total)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidPayload)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	customer, err := h.svc.Create(r.Context(), tc, service.CreateInput{
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Address: body.Address,
		Notes:   body.Notes,
	})
	if err != nil {
		h.fail(w, r, err, "createCustomer")
		return
	}
	httpapi.WriteValue(w, http.StatusCreated, customer)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.ParseID(r, "id")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidID)
		return
	}
	var body updateRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidPayload)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	customer, err := h.svc.Update(r.Context(), tc, id, service.UpdateInput(body))
	if err != nil {
		h.fail(w, r, err, "updateCustomer")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, customer)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.ParseID(r, "id")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidID)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), tc, id); err != nil {
		h.fail(w, r, err, "deleteCustomer")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, httpapi.DeletedRef{ID: id.String()})
}
