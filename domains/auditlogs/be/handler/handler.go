package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/domains/auditlogs/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
	tenantmiddleware "github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant/middleware"
)

// Handler serves audit review to admins.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("audit log service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router, _ ...func(http.Handler) http.Handler) {
	r.With(tenantmiddleware.RequirePermission(tenant.PermAuditRead)).Get("/", h.List)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	input := service.ListInput{}
	var okPage, okAction, okResource bool
	input.Page, okPage = httpapi.ParsePage(r)
	input.Action, okAction = httpapi.QueryString(r, "action")
	input.ResourceID, okResource = httpapi.QueryUUID(r, "resource_id")
	if !okPage || !okAction || !okResource {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.MsgInvalidQuery)
		return
	}
	tc, ok := httpapi.TenantContext(w, r)
	if !ok {
		return
	}

	result, err := h.svc.List(r.Context(), tc, input)
	if err != nil {
		httpapi.Fail(w, r, err, httpapi.Failure{Operation: "listAuditLogs", Invalid: httpapi.MsgInvalidQuery, Logger: h.logger})
		return
	}
	httpapi.WriteList(w, result.Items, result.Total)
}
