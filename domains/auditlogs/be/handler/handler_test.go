package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/auditlogs/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/domains/auditlogs/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi/apitest"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
)

func TestAuditLogsAreAdminOnly(t *testing.T) {
	t.Parallel()

	repo := domainrepo.NewMemoryRepository()
	srv := apitest.New(t, "/audit-logs", New(service.New(repo), zaptest.NewLogger(t)).Routes)
	org := uuid.New()
	customer := uuid.New()
	repo.Add(persistence.AuditRecord{
		Action:         "customer.create",
		Actor:          "actor-member",
		OrganizationID: org,
		ResourceID:     &customer,
		Metadata:       []byte(`{"customer_id":"` + customer.String() + `"}`),
		CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})

	for _, role := range []string{"manager", "member", "viewer"} {
		apitest.RequireError(t, srv.Do(http.MethodGet, "/api/audit-logs", srv.Token(org, role), nil), http.StatusForbidden, "Forbidden")
	}
	require.Zero(t, repo.Ledger.Len())

	rec := srv.Do(http.MethodGet, "/api/audit-logs?action=customer.create", srv.Token(org, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	items, count := apitest.List(t, rec)
	require.Equal(t, 1, count)
	require.Equal(t, customer.String(), items[0]["resource_id"])
	require.Equal(t, "audit_log.list", repo.Ledger.Last().Action())

	rec = srv.Do(http.MethodGet, "/api/audit-logs", srv.Token(uuid.New(), "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, count = apitest.List(t, rec)
	require.Zero(t, count)
}

func TestAuditLogsRejectBadQueries(t *testing.T) {
	t.Parallel()

	repo := domainrepo.NewMemoryRepository()
	srv := apitest.New(t, "/audit-logs", New(service.New(repo), zaptest.NewLogger(t)).Routes)
	token := srv.Token(uuid.New(), "admin")

	apitest.RequireError(t, srv.Do(http.MethodGet, "/api/audit-logs?action=nope", token, nil), http.StatusBadRequest, "invalid query")
	apitest.RequireError(t, srv.Do(http.MethodGet, "/api/audit-logs?resource_id=123", token, nil), http.StatusBadRequest, "invalid query")
	apitest.RequireError(t, srv.Do(http.MethodGet, "/api/audit-logs?limit=1000", token, nil), http.StatusBadRequest, "invalid query")
	require.Zero(t, repo.Ledger.Len())
}
