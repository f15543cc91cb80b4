package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/contracts/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/domains/contracts/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi/apitest"
)

func newServer(t *testing.T) (*apitest.Server, *domainrepo.MemoryRepository) {
	t.Helper()
	repo := domainrepo.NewMemoryRepository()
	h := New(service.New(repo), zaptest.NewLogger(t))
	return apitest.New(t, "/contracts", h.Routes), repo
}

func TestContractSigningFlow(t *testing.T) {
	t.Parallel()

	srv, repo := newServer(t)
	org, project := uuid.New(), uuid.New()
	quote := repo.AddQuote(org, project, "accepted")
	token := srv.Token(org, "manager")

	rec := srv.Do(http.MethodPost, "/api/contracts", token, map[string]any{
		"quote_id": quote, "number": "C-10", "title": "Kitchen works",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contract := apitest.Value(t, rec)
	id := contract["id"].(string)
	require.Equal(t, project.String(), contract["project_id"])
	require.Nil(t, contract["signed_at"])

	for _, status := range []string{"sent", "signed"} {
		rec = srv.Do(http.MethodPatch, "/api/contracts/"+id+"/status", token, map[string]any{"status": status})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	require.NotNil(t, apitest.Value(t, rec)["signed_at"])

	apitest.RequireError(t, srv.Do(http.MethodPatch, "/api/contracts/"+id+"/status", token, map[string]any{"status": "draft"}),
		http.StatusConflict, "cannot change status from signed to draft")

	require.Equal(t, http.StatusOK, srv.Do(http.MethodDelete, "/api/contracts/"+id, token, nil).Code)
	apitest.RequireError(t, srv.Do(http.MethodGet, "/api/contracts/"+id, token, nil), http.StatusNotFound, "Contract not found")
}

func TestContractCreateRejections(t *testing.T) {
	t.Parallel()

	srv, repo := newServer(t)
	org := uuid.New()
	draft := repo.AddQuote(org, uuid.New(), "draft")
	token := srv.Token(org, "member")

	apitest.RequireError(t, srv.Do(http.MethodPost, "/api/contracts", token, map[string]any{
		"quote_id": draft, "number": "C-1", "title": "Too early",
	}), http.StatusConflict, "quote is not accepted")

	apitest.RequireError(t, srv.Do(http.MethodPost, "/api/contracts", token, map[string]any{
		"quote_id": uuid.New(), "number": "C-1", "title": "Ghost",
	}), http.StatusNotFound, "Quote not found")

	apitest.RequireError(t, srv.Do(http.MethodPost, "/api/contracts", token, map[string]any{
		"quote_id": draft, "project_id": uuid.New(), "number": "C-1", "title": "Override",
	}), http.StatusBadRequest, "invalid payload")

	require.Equal(t, 1, repo.Ledger.Len())
	require.Equal(t, "contract.create.not_found", repo.Ledger.Last().Action())
}

func TestContractUnknownStatusIsRejectedUnaudited(t *testing.T) {
	t.Parallel()

	srv, repo := newServer(t)
	org := uuid.New()
	quote := repo.AddQuote(org, uuid.New(), "accepted")
	token := srv.Token(org, "member")

	rec := srv.Do(http.MethodPost, "/api/contracts", token, map[string]any{"quote_id": quote, "number": "C-7", "title": "Roof"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := apitest.Value(t, rec)["id"].(string)
	before := repo.Ledger.Len()

	for _, target := range []string{id, uuid.NewString()} {
		apitest.RequireError(t, srv.Do(http.MethodPatch, "/api/contracts/"+target+"/status", token, map[string]any{"status": "xxx"}),
			http.StatusBadRequest, "invalid payload")
	}

	require.Zero(t, repo.Ledger.Count("contract.status.update"))
	require.Zero(t, repo.Ledger.Count("contract.status.update.not_found"))
	require.Equal(t, before, repo.Ledger.Len())
}
