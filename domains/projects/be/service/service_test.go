package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/projects/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

func member(org uuid.UUID) tenant.Context {
	return tenant.Context{OrganizationID: org, ActorID: "actor-" + org.String()[:8], Role: tenant.RoleMember}
}

func strPtr(s string) *string { return &s }

func requirePublic(t *testing.T, err error, want string) {
	t.Helper()
	msg, ok := apperr.PublicMessage(err)
	require.True(t, ok, "expected a caller-safe message on %v", err)
	require.Equal(t, want, msg)
}

type fixture struct {
	svc      Service
	repo     *domainrepo.MemoryRepository
	tc       tenant.Context
	customer uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := domainrepo.NewMemoryRepository()
	f := fixture{svc: New(repo), repo: repo, tc: member(uuid.New()), customer: uuid.New()}
	repo.AddCustomer(f.tc.OrganizationID, f.customer)
	return f
}

func (f fixture) create(t *testing.T, name string) Project {
	t.Helper()
	p, err := f.svc.Create(context.Background(), f.tc, CreateInput{CustomerID: &f.customer, Name: name})
	require.NoError(t, err)
	return p
}

func TestServiceCreateStartsAsDraft(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	project := f.create(t, " Loft conversion ")
	require.Equal(t, "Loft conversion", project.Name)
	require.Equal(t, "draft", project.Status)
	require.Equal(t, f.customer, project.CustomerID)

	entry := f.repo.Ledger.Last()
	require.Equal(t, "project.create", entry.Action())
	assert.Equal(t, project.ID.String(), entry.Metadata()["project_id"])
	assert.Equal(t, f.customer.String(), entry.Metadata()["customer_id"])
	assert.Equal(t, "draft", entry.Metadata()["status"])
}

func TestServiceCreateValidatesBeforeLookingUpCustomer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.tc, CreateInput{Name: ""})

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "customer_id")
	require.Contains(t, ve.Fields, "name")
	require.Zero(t, f.repo.Ledger.Len())
}

func TestServiceCreateWithForeignCustomerIsAuditedAsNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	other := member(uuid.New())
	_, err := f.svc.Create(context.Background(), other, CreateInput{CustomerID: &f.customer, Name: "Shed"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	requirePublic(t, err, "Customer not found")

	entry := f.repo.Ledger.Last()
	require.Equal(t, "project.create.not_found", entry.Action())
	require.Equal(t, other.OrganizationID, entry.OrganizationID)
	assert.Equal(t, "customer", entry.Metadata()["missing"])
	assert.Equal(t, f.customer.String(), entry.Metadata()["customer_id"])
}

func TestServiceListFilters(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	kitchen := f.create(t, "Kitchen refit")
	f.create(t, "Garden wall")
	_, err := f.svc.UpdateStatus(context.Background(), f.tc, kitchen.ID, "active")
	require.NoError(t, err)

	res, err := f.svc.List(context.Background(), f.tc, ListInput{Page: paging.Default(), Status: strPtr("active")})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, kitchen.ID, res.Items[0].ID)

	entry := f.repo.Ledger.Last()
	require.Equal(t, "project.list", entry.Action())
	assert.Nil(t, entry.Metadata()["project_id"])
	assert.Equal(t, map[string]any{"status": "active"}, entry.Metadata()["filters"])

	res, err = f.svc.List(context.Background(), f.tc, ListInput{Page: paging.Default(), CustomerID: &f.customer, Query: strPtr("WALL")})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, "Garden wall", res.Items[0].Name)
}

func TestServiceListRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.List(context.Background(), f.tc, ListInput{Page: paging.Default(), Status: strPtr("archived")})
	require.True(t, apperr.IsValidation(err))
	require.Zero(t, f.repo.Ledger.Len())
}

func TestServiceStatusTransitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	project := f.create(t, "Extension")
	ctx := context.Background()

	updated, err := f.svc.UpdateStatus(ctx, f.tc, project.ID, "active")
	require.NoError(t, err)
	require.Equal(t, "active", updated.Status)
	entry := f.repo.Ledger.Last()
	require.Equal(t, "project.status.update", entry.Action())
	assert.Equal(t, "draft", entry.Metadata()["from"])
	assert.Equal(t, "active", entry.Metadata()["to"])

	// Staying on the same status is a recorded no-op.
	_, err = f.svc.UpdateStatus(ctx, f.tc, project.ID, "active")
	require.NoError(t, err)
	entry = f.repo.Ledger.Last()
	assert.Equal(t, "active", entry.Metadata()["from"])
	assert.Equal(t, "active", entry.Metadata()["to"])

	before := f.repo.Ledger.Len()
	_, err = f.svc.UpdateStatus(ctx, f.tc, project.ID, "draft")
	require.ErrorIs(t, err, apperr.ErrConflict)
	requirePublic(t, err, "cannot change status from active to draft")

	_, err = f.svc.UpdateStatus(ctx, f.tc, project.ID, "paused")
	require.True(t, apperr.IsValidation(err))
	require.Equal(t, before, f.repo.Ledger.Len())

	_, err = f.svc.UpdateStatus(ctx, member(uuid.New()), project.ID, "completed")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, "project.status.update.not_found", f.repo.Ledger.Last().Action())
}

func TestServiceUpdateRecordsChangedFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	project := f.create(t, "Porch")

	_, err := f.svc.Update(context.Background(), f.tc, project.ID, UpdateInput{
		Name:        strPtr("Porch"),
		SiteAddress: strPtr("12 High St"),
	})
	require.NoError(t, err)
	entry := f.repo.Ledger.Last()
	require.Equal(t, "project.update", entry.Action())
	assert.Equal(t, []any{"site_address"}, entry.Metadata()["changed_fields"])

	_, err = f.svc.Update(context.Background(), f.tc, project.ID, UpdateInput{})
	require.True(t, apperr.IsValidation(err))
}

func TestServiceDeleteIsHardAndCountsDependents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	project := f.create(t, "Barn")
	f.repo.SetDependents(project.ID, persistence.ProjectDependents{Quotes: 2, Contracts: 1, Handovers: 3})

	require.NoError(t, f.svc.Delete(context.Background(), f.tc, project.ID))
	require.False(t, f.repo.Exists(project.ID))

	entry := f.repo.Ledger.Last()
	require.Equal(t, "project.delete", entry.Action())
	meta := entry.Metadata()
	assert.Equal(t, "hard", meta["mode"])
	assert.Equal(t, "draft", meta["status"])
	assert.Equal(t, f.customer.String(), meta["customer_id"])
	assert.Equal(t, map[string]any{"quotes": 2.0, "contracts": 1.0, "handovers": 3.0}, meta["dependents"])

	// A second delete and a later read both report the id as missing.
	err := f.svc.Delete(context.Background(), f.tc, project.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, "project.delete.not_found", f.repo.Ledger.Last().Action())
	require.Equal(t, project.ID.String(), f.repo.Ledger.Last().Metadata()["project_id"])

	_, err = f.svc.Get(context.Background(), f.tc, project.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, "project.get.not_found", f.repo.Ledger.Last().Action())
}

func TestServiceInfrastructureFailureIsNotAudited(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	project := f.create(t, "Roof")
	f.repo.FailWith = errors.New("connection reset")

	_, err := f.svc.Get(context.Background(), f.tc, project.ID)
	require.EqualError(t, err, "connection reset")
	require.Equal(t, 1, f.repo.Ledger.Len())
}
