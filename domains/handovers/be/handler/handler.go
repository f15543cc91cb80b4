package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/domains/handovers/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
	tenantmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant/middleware"
)

const notFoundMessage = "Handover not found"

type createRequest struct {
	ProjectID     *uuid.UUID      `json:"project_id"`
	RecipientName string          `json:"recipient_name"`
	Notes         string          `json:"notes"`
	ScheduledFor  *time.Time      `json:"scheduled_for"`
	Payload       json.RawMessage `json:"payload"`
}

type updateRequest struct {
	RecipientName *string              `json:"recipient_name"`
	Notes         *string              `json:"notes"`
	ScheduledFor  httpapi.OptionalTime `json:"scheduled_for"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type payloadRequest struct {
	Payload json.RawMessage `json:"payload"`
}

// Handler wires the handovers service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("handovers service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router, body ...func(http.Handler) http.Handler) {
	read := tenantmiddleware.RequirePermission(tenant.PermRead)
	write := append(chi.Middlewares{tenantmiddleware.RequirePermission(tenant.PermWrite)}, body...)

	r.With(read).Get("/", h.List)
	r.With(write...).Post("/", h.Create)
	r.With(read).Get("/{id}", h.Get)
	r.With(write...).Patch("/{id}", h.Update)
	r.With(write...).Patch("/{id}/status", h.UpdateStatus)
	r.With(write...).Patch("/{id}/payload", h.UpdatePayload)
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

	handover, err := h.svc.Get(r.Context(), tc, id)
	if err != nil {
		h.fail(w, r, err, "getHandover")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, handover)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	input := service.ListInput{}
	var okPage, okQuery, okStatus, okProject bool
	input.Page, okPage = httpapi.ParsePage(r)
	input.Query, okQuery = httpapi.QueryString(r, "q")
	input.Status, okStatus = httpapi.QueryString(r, "status")
	input.ProjectID, okProject = httpapi.QueryUUID(r, "project_id")
	if !okPage || !okQuery || !okStatus || !okProject {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidQuery)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	result, err := h.svc.List(r.Context(), tc, input)
	if err != nil {
		httpapi.Fail(w, r, err, httpapi.Failure{Operation: "listHandovers", Invalid: httpapi.MsgInvalidQuery, Logger: h.logger})
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

	handover, err := h.svc.Create(r.Context(), tc, service.CreateInput(body))
	if err != nil {
		h.fail(w, r, err, "createHandover")
		return
	}
	httpapi.WriteValue(w, http.StatusCreated, handover)
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

	handover, err := h.svc.Update(r.Context(), tc, id, service.UpdateInput{
		RecipientName: body.RecipientName,
		Notes:         body.Notes,
		ScheduledFor:  body.ScheduledFor.Patch(),
	})
	if err != nil {
		h.fail(w, r, err, "updateHandover")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, handover)
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

	handover, err := h.svc.UpdateStatus(r.Context(), tc, id, body.Status)
	if err != nil {
		h.fail(w, r, err, "updateHandoverStatus")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, handover)
}

func (h *Handler) UpdatePayload(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.ParseID(r, "id")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidID)
		return
	}
	var body payloadRequest
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidPayload)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	handover, err := h.svc.UpdatePayload(r.Context(), tc, id, body.Payload)
	if err != nil {
		h.fail(w, r, err, "updateHandoverPayload")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, handover)
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
		h.fail(w, r, err, "deleteHandover")
		return
	}
	httpapi.WriteValue(w, http.StatusOK, httpapi.DeletedRef{ID: id.String()})
}
