package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/projects/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/domains/projects/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi/apitest"
)

func newServer(t *testing.T) (*apitest.Server, *domainrepo.MemoryRepository) {
	t.Helper()
	repo := domainrepo.NewMemoryRepository()
	h := New(service.New(repo), zaptest.NewLogger(t))
	return apitest.New(t, "/projects", h.Routes), repo
}

func TestProjectStatusFlow(t *testing.T) {
	t.Parallel()

	srv, repo := newServer(t)
	org, customer := uuid.New(), uuid.New()
	repo.AddCustomer(org, customer)
	token := srv.Token(org, "member")

	rec := srv.Do(http.MethodPost, "/api/projects", token, map[string]any{"customer_id": customer, "name": "Attic"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := apitest.Value(t, rec)
	id := project["id"].(string)
	require.Equal(t, "draft", project["status"])

	rec = srv.Do(http.MethodPatch, "/api/projects/"+id+"/status", token, map[string]any{"status": "active"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "active", apitest.Value(t, rec)["status"])

	apitest.RequireError(t, srv.Do(http.MethodPatch, "/api/projects/"+id+"/status", token, map[string]any{"status": "draft"}),
		http.StatusConflict, "cannot change status from active to draft")
	apitest.RequireError(t, srv.Do(http.MethodPatch, "/api/projects/"+id+"/status", token, map[string]any{"status": "unknown"}),
		http.StatusBadRequest, "invalid payload")

	rec = srv.Do(http.MethodGet, "/api/projects?status=active&customer_id="+customer.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, count := apitest.List(t, rec)
	require.Equal(t, 1, count)
	require.Equal(t, id, items[0]["id"])

	require.Equal(t, []string{"project.create", "project.status.update", "project.list"}, actions(repo))
}

func TestProjectCreateWithUnknownCustomer(t *testing.T) {
	t.Parallel()

	srv, repo := newServer(t)
	token := srv.Token(uuid.New(), "member")

	apitest.RequireError(t, srv.Do(http.MethodPost, "/api/projects", token, map[string]any{"customer_id": uuid.NewString(), "name": "Shed"}),
		http.StatusNotFound, "Customer not found")
	require.Equal(t, []string{"project.create.not_found"}, actions(repo))
}

func TestDeletedProjectStaysNotFound(t *testing.T) {
	t.Parallel()

	srv, repo := newServer(t)
	org, customer := uuid.New(), uuid.New()
	repo.AddCustomer(org, customer)
	token := srv.Token(org, "manager")

	rec := srv.Do(http.MethodPost, "/api/projects", token, map[string]any{"customer_id": customer, "name": "Deck"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := apitest.Value(t, rec)["id"].(string)

	require.Equal(t, http.StatusOK, srv.Do(http.MethodDelete, "/api/projects/"+id, token, nil).Code)

	apitest.RequireError(t, srv.Do(http.MethodDelete, "/api/projects/"+id, token, nil), http.StatusNotFound, "Project not found")
	last := repo.Ledger.Last()
	require.Equal(t, "project.delete.not_found", last.Action())
	require.Equal(t, id, last.Metadata()["project_id"])

	apitest.RequireError(t, srv.Do(http.MethodGet, "/api/projects/"+id, token, nil), http.StatusNotFound, "Project not found")
	require.Equal(t, "project.get.not_found", repo.Ledger.Last().Action())
}

func TestProjectRejectedRequestsAreNotAudited(t *testing.T) {
	t.Parallel()

	srv, repo := newServer(t)
	org := uuid.New()
	member := srv.Token(org, "member")

	cases := []struct {
		name    string
		method  string
		path    string
		token   string
		body    any
		status  int
		message string
	}{
		{"unknown status filter", http.MethodGet, "/api/projects?status=archived", member, nil, http.StatusBadRequest, "invalid query"},
		{"malformed customer filter", http.MethodGet, "/api/projects?customer_id=abc", member, nil, http.StatusBadRequest, "invalid query"},
		{"missing customer", http.MethodPost, "/api/projects", member, map[string]any{"name": "A"}, http.StatusBadRequest, "invalid payload"},
		{"malformed customer", http.MethodPost, "/api/projects", member, map[string]any{"name": "A", "customer_id": "nope"}, http.StatusBadRequest, "invalid payload"},
		{"status on bad id", http.MethodPatch, "/api/projects/xyz/status", member, map[string]any{"status": "active"}, http.StatusBadRequest, "invalid id"},
		{"member cannot delete", http.MethodDelete, "/api/projects/" + uuid.NewString(), member, nil, http.StatusForbidden, "Forbidden"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := repo.Ledger.Len()
			apitest.RequireError(t, srv.Do(tc.method, tc.path, tc.token, tc.body), tc.status, tc.message)
			require.Equal(t, before, repo.Ledger.Len())
		})
	}
}

func actions(repo *domainrepo.MemoryRepository) []string {
	var out []string
	for _, e := range repo.Ledger.Entries() {
		out = append(out, e.Action())
	}
	return out
}
