package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/auditlogs/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

func seed(repo *domainrepo.MemoryRepository, org uuid.UUID, action string, resource uuid.UUID, at time.Time) uuid.UUID {
	id := uuid.New()
	repo.Add(persistence.AuditRecord{
		ID:             id,
		Action:         action,
		Actor:          "actor-1",
		OrganizationID: org,
		ResourceID:     &resource,
		Metadata:       []byte(`{}`),
		CreatedAt:      at,
	})
	return id
}

func TestListScopesAndFilters(t *testing.T) {
	t.Parallel()

	repo := domainrepo.NewMemoryRepository()
	svc := New(repo)
	org, other := uuid.New(), uuid.New()
	quote := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := seed(repo, org, "quote.create", quote, base)
	second := seed(repo, org, "quote.update", quote, base.Add(time.Minute))
	seed(repo, org, "customer.get", uuid.New(), base.Add(2*time.Minute))
	seed(repo, other, "quote.create", quote, base)

	tc := tenant.Context{OrganizationID: org, ActorID: "admin-1", Role: tenant.RoleAdmin}
	result, err := svc.List(context.Background(), tc, ListInput{Page: paging.Default(), ResourceID: &quote})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Equal(t, second, result.Items[0].ID)
	require.Equal(t, first, result.Items[1].ID)

	entry := repo.Ledger.Last()
	require.Equal(t, "audit_log.list", entry.Action())
	require.Equal(t, org, entry.OrganizationID)
	meta := entry.Metadata()
	require.Equal(t, float64(2), meta["total_count"])
	require.Equal(t, map[string]any{"resource_id": quote.String()}, meta["filters"])
	require.Nil(t, meta["audit_log_id"])

	action := "quote.create"
	result, err = svc.List(context.Background(), tc, ListInput{Page: paging.Default(), Action: &action})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, first, result.Items[0].ID)
}

func TestListRejectsUnknownAction(t *testing.T) {
	t.Parallel()

	repo := domainrepo.NewMemoryRepository()
	svc := New(repo)
	tc := tenant.Context{OrganizationID: uuid.New(), ActorID: "admin-1", Role: tenant.RoleAdmin}

	for _, action := range []string{"quote.explode", "invoice.get", "quote"} {
		action := action
		_, err := svc.List(context.Background(), tc, ListInput{Page: paging.Default(), Action: &action})
		require.True(t, apperr.IsValidation(err), action)
	}
	_, err := svc.List(context.Background(), tc, ListInput{Page: paging.Page{Limit: 0}})
	require.True(t, apperr.IsValidation(err))
	require.Zero(t, repo.Ledger.Len())
}

func TestListFailureIsNotAudited(t *testing.T) {
	t.Parallel()

	repo := domainrepo.NewMemoryRepository()
	repo.FailWith = errors.New("connection reset")
	svc := New(repo)
	tc := tenant.Context{OrganizationID: uuid.New(), ActorID: "admin-1", Role: tenant.RoleAdmin}

	_, err := svc.List(context.Background(), tc, ListInput{Page: paging.Default()})
	require.EqualError(t, err, "connection reset")
	require.Zero(t, repo.Ledger.Len())
}
