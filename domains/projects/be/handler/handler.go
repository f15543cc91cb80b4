package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/domains/projects/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
	tenantmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant/middleware"
)

const notFoundMessage = "Project not found"

type createRequest struct {
	CustomerID  *uuid.UUID `json:"customer_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SiteAddress string     `json:"site_address"`
}

type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	SiteAddress *string `json:"site_address"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// Handler wires the projects service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("projects service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the project endpoints on r.
func (h *Handler) Routes(r chi.Router, body ...func(http.Handler) http.Handler) {
	read := tenantmiddleware.RequirePermission(tenant.PermRead)
	write := append(chi.Middlewares{tenantmiddleware.RequirePermission(tenant.PermWrite)}, body...)

	r.With(read).Get("/", h.List)
	r.With(write...).Post("/", h.Create)
	r.With(read).Get("/{id}", h.Get)
	r.With(write...).Patch("/{id}", h.Update)
	r.With(write...).Patch("/{id}/status", h.UpdateStatus)
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

	project, err := h.svc.Get(r.Context(), tc, id)
	if err != nil {
		h.fail(w, r, err, "getProject")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, project)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	input := service.ListInput{}
	var okPage, okQuery, okStatus, okCustomer bool
	input.Page, okPage = httpapi.ParsePage(r)
	input.Query, okQuery = httpapi.QueryString(r, "q")
	input.Status, okStatus = httpapi.QueryString(r, "status")
	input.CustomerID, okCustomer = httpapi.QueryUUID(r, "customer_id")
	if !okPage || !okQuery || !okStatus || !okCustomer {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidQuery)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	result, err := h.svc.List(r.Context(), tc, input)
	if err != nil {
		httpapi.Fail(w, r, err, httpapi.Failure{Operation: "listProjects", Invalid: httpapi.MsgInvalidQuery, Logger: h.logger})
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

	project, err := h.svc.Create(r.Context(), tc, service.CreateInput(body))
	if err != nil {
		h.fail(w, r, err, "createProject")
		return
	}
	httpapi.WriteValue(w, http.StatusCreated, project)
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

	project, err := h.svc.Update(r.Context(), tc, id, service.UpdateInput(body))
	if err != nil {
		h.fail(w, r, err, "updateProject")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, project)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.ParseID(r, "id")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidID)
		return
	}
	var body statusRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidPayload)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	project, err := h.svc.UpdateStatus(r.Context(), tc, id, body.Status)
	if err != nil {
		h.fail(w, r, err, "updateProjectStatus")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, project)
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
		h.fail(w, r, err, "deleteProject")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, httpapi.DeletedRef{ID: id.String()})
}
