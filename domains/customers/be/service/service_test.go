package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/customers/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

func member(org uuid.UUID) tenant.Context {
	return tenant.Context{OrganizationID: org, ActorID: "actor-" + org.String()[:8], Role: tenant.RoleMember}
}

func strPtr(s string) *string { return &s }

func newService(t *testing.T) (Service, *domainrepo.MemoryRepository) {
	t.Helper()
	repo := domainrepo.NewMemoryRepository()
	return New(repo), repo
}

func TestServiceCreate(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	tc := member(uuid.New())

	customer, err := svc.Create(context.Background(), tc, CreateInput{Name: "  Acme Roofing ", Email: "Ops@Acme.test"})
	require.NoError(t, err)
	require.Equal(t, "Acme Roofing", customer.Name)
	require.Equal(t, "ops@acme.test", customer.Email)
	require.Equal(t, tc.OrganizationID, customer.OrganizationID)

	entry := repo.Ledger.Last()
	require.Equal(t, "customer.create", entry.Action())
	require.Equal(t, tc.OrganizationID, entry.OrganizationID)
	require.Equal(t, customer.ID.String(), entry.Metadata()["customer_id"])
}

func TestServiceCreateRejectsInvalidInputWithoutAudit(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	_, err := svc.Create(context.Background(), member(uuid.New()), CreateInput{Name: " ", Email: "nope"})

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "name")
	require.Contains(t, ve.Fields, "email")
	require.Zero(t, repo.Ledger.Len())
}

func TestServiceCreateConflictRollsBack(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	tc := member(uuid.New())
	_, err := svc.Create(context.Background(), tc, CreateInput{Name: "A", Email: "a@acme.test"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tc, CreateInput{Name: "B", Email: "A@ACME.test"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, 1, repo.Ledger.Len())

	// The same address is free in another organization.
	_, err = svc.Create(context.Background(), member(uuid.New()), CreateInput{Name: "C", Email: "a@acme.test"})
	require.NoError(t, err)
}

func TestServiceGetIsScopedToOrganization(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	orgA, orgB := member(uuid.New()), member(uuid.New())
	created, err := svc.Create(context.Background(), orgA, CreateInput{Name: "Acme"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), orgA, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "customer.get", repo.Ledger.Last().Action())

	_, foreignErr := svc.Get(context.Background(), orgB, created.ID)
	_, missingErr := svc.Get(context.Background(), orgB, uuid.New())
	require.ErrorIs(t, foreignErr, apperr.ErrNotFound)
	require.ErrorIs(t, missingErr, apperr.ErrNotFound)

	entries := repo.Ledger.Referencing(orgB.OrganizationID, created.ID)
	require.Len(t, entries, 1)
	require.Equal(t, "customer.get.not_found", entries[0].Action())
	require.Equal(t, created.ID.String(), entries[0].Metadata()["customer_id"])
	require.Equal(t, 1, repo.Ledger.Count("customer.get"))
}

func TestServiceUpdateRecordsChangedFields(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	tc := member(uuid.New())
	created, err := svc.Create(context.Background(), tc, CreateInput{Name: "Acme", Phone: "555-0100"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), tc, created.ID, UpdateInput{
		Name:  strPtr("Acme Ltd"),
		Phone: strPtr("555-0100"),
		Notes: strPtr("gate code 1234"),
	})
	require.NoError(t, err)
	require.Equal(t, "Acme Ltd", updated.Name)
	require.Equal(t, "gate code 1234", updated.Notes)

	entry := repo.Ledger.Last()
	require.Equal(t, "customer.update", entry.Action())
	require.Equal(t, []any{"name", "notes"}, entry.Metadata()["changed_fields"])

	_, err = svc.Update(context.Background(), tc, created.ID, UpdateInput{Name: strPtr("Acme Ltd")})
	require.NoError(t, err)
	require.Equal(t, []any{}, repo.Ledger.Last().Metadata()["changed_fields"])
}

func TestServiceUpdateOutcomes(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	tc := member(uuid.New())
	first, err := svc.Create(context.Background(), tc, CreateInput{Name: "First", Email: "first@acme.test"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), tc, CreateInput{Name: "Second"})
	require.NoError(t, err)
	before := repo.Ledger.Len()

	_, err = svc.Update(context.Background(), tc, second.ID, UpdateInput{})
	require.True(t, apperr.IsValidation(err))

	_, err = svc.Update(context.Background(), tc, second.ID, UpdateInput{Name: strPtr("")})
	require.True(t, apperr.IsValidation(err))

	_, err = svc.Update(context.Background(), tc, second.ID, UpdateInput{Email: strPtr("first@acme.test")})
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, before, repo.Ledger.Len())

	_, err = svc.Update(context.Background(), tc, uuid.Nil, UpdateInput{Name: strPtr("x")})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, "customer.update.not_found", repo.Ledger.Last().Action())
	require.Equal(t, uuid.Nil.String(), repo.Ledger.Last().Metadata()["customer_id"])
	require.Zero(t, repo.Ledger.Count("customer.update"))

	got, err := svc.Get(context.Background(), tc, first.ID)
	require.NoError(t, err)
	require.Equal(t, "first@acme.test", got.Email)
}

func TestServiceDeleteIsSoft(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	tc := member(uuid.New())
	created, err := svc.Create(context.Background(), tc, CreateInput{Name: "Acme"})
	require.NoError(t, err)
	repo.SetProjectCount(created.ID, 2)

	require.NoError(t, svc.Delete(context.Background(), tc, created.ID))
	require.True(t, repo.Deleted(created.ID))

	entry := repo.Ledger.Last()
	require.Equal(t, "customer.delete", entry.Action())
	require.Equal(t, "soft", entry.Metadata()["mode"])
	require.Equal(t, map[string]any{"projects": float64(2)}, entry.Metadata()["dependents"])

	err = svc.Delete(context.Background(), tc, created.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, "customer.delete.not_found", repo.Ledger.Last().Action())

	_, err = svc.Get(context.Background(), tc, created.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceListPagesAreDisjoint(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	tc := member(uuid.New())
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := svc.Create(context.Background(), tc, CreateInput{Name: name})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), member(uuid.New()), CreateInput{Name: "Other tenant"})
	require.NoError(t, err)

	first, err := svc.List(context.Background(), tc, ListInput{Page: paging.Page{Limit: 1}})
	require.NoError(t, err)
	second, err := svc.List(context.Background(), tc, ListInput{Page: paging.Page{Limit: 1, Offset: 1}})
	require.NoError(t, err)

	require.Len(t, first.Items, 1)
	require.Len(t, second.Items, 1)
	require.NotEqual(t, first.Items[0].ID, second.Items[0].ID)
	require.Equal(t, 3, second.Total)

	metadata := repo.Ledger.Last().Metadata()
	assert.Equal(t, float64(1), metadata["limit"])
	assert.Equal(t, float64(1), metadata["offset"])
	assert.Equal(t, float64(1), metadata["result_count"])
	assert.Equal(t, float64(3), metadata["total_count"])
	assert.Equal(t, []any{second.Items[0].ID.String()}, metadata["result_ids"])
	assert.Contains(t, metadata, "customer_id")
	assert.Nil(t, metadata["customer_id"])

	filtered, err := svc.List(context.Background(), tc, ListInput{Page: paging.Default(), Query: strPtr("amm")})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	require.Equal(t, "Gamma", filtered.Items[0].Name)
	require.Equal(t, map[string]any{"q": "amm"}, repo.Ledger.Last().Metadata()["filters"])
}

func TestServiceListRejectsBadPage(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	for _, page := range []paging.Page{{Limit: 0}, {Limit: 101}, {Limit: 10, Offset: -1}} {
		_, err := svc.List(context.Background(), member(uuid.New()), ListInput{Page: page})
		require.True(t, apperr.IsValidation(err), "%+v", page)
	}
	require.Zero(t, repo.Ledger.Len())
}

func TestServiceInfrastructureFailureIsNotAudited(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	repo.FailWith = errors.New("statement timeout")

	_, err := svc.Get(context.Background(), member(uuid.New()), uuid.New())
	require.Error(t, err)
	require.NotErrorIs(t, err, apperr.ErrNotFound)
	require.Zero(t, repo.Ledger.Len())
}

func TestServiceRequiresTenantContext(t *testing.T) {
	t.Parallel()

	svc, repo := newService(t)
	_, err := svc.Get(context.Background(), tenant.Context{}, uuid.New())
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)
	require.Zero(t, repo.Ledger.Len())
}
