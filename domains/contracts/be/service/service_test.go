package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/contracts/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	svc     Service
	repo    *domainrepo.MemoryRepository
	tc      tenant.Context
	project uuid.UUID
	quote   uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := domainrepo.NewMemoryRepository()
	org, project := uuid.New(), uuid.New()
	return fixture{
		svc:     New(repo),
		repo:    repo,
		tc:      tenant.Context{OrganizationID: org, ActorID: "office", Role: tenant.RoleManager},
		project: project,
		quote:   repo.AddQuote(org, project, "accepted"),
	}
}

func (f fixture) create(t *testing.T, number string) Contract {
	t.Helper()
	c, err := f.svc.Create(context.Background(), f.tc, CreateInput{QuoteID: &f.quote, Number: number, Title: "Works agreement"})
	require.NoError(t, err)
	return c
}

func TestServiceCreateDerivesProjectFromQuote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	contract := f.create(t, "C-1")
	require.Equal(t, f.project, contract.ProjectID)
	require.Equal(t, f.quote, contract.QuoteID)
	require.Equal(t, "draft", contract.Status)

	meta := f.repo.Ledger.Last().Metadata()
	assert.Equal(t, contract.ID.String(), meta["contract_id"])
	assert.Equal(t, f.quote.String(), meta["quote_id"])
	assert.Equal(t, f.project.String(), meta["project_id"])
}

func TestServiceCreateRequiresAcceptedQuote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sent := f.repo.AddQuote(f.tc.OrganizationID, f.project, "sent")

	_, err := f.svc.Create(context.Background(), f.tc, CreateInput{QuoteID: &sent, Number: "C-2", Title: "Early"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	msg, _ := apperr.PublicMessage(err)
	require.Equal(t, "quote is not accepted", msg)
	require.Zero(t, f.repo.Ledger.Len())
}

func TestServiceCreateWithForeignQuote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	other := tenant.Context{OrganizationID: uuid.New(), ActorID: "intruder", Role: tenant.RoleAdmin}

	_, err := f.svc.Create(context.Background(), other, CreateInput{QuoteID: &f.quote, Number: "C-3", Title: "Nope"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	msg, _ := apperr.PublicMessage(err)
	require.Equal(t, "Quote not found", msg)

	entry := f.repo.Ledger.Last()
	require.Equal(t, "contract.create.not_found", entry.Action())
	assert.Equal(t, "quote", entry.Metadata()["missing"])
	assert.Equal(t, f.quote.String(), entry.Metadata()["quote_id"])
}

func TestServiceSigning(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	contract := f.create(t, "C-4")
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, f.tc, contract.ID, "signed")
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.UpdateStatus(ctx, f.tc, contract.ID, "sent")
	require.NoError(t, err)
	signed, err := f.svc.UpdateStatus(ctx, f.tc, contract.ID, "signed")
	require.NoError(t, err)
	require.Equal(t, "signed", signed.Status)
	require.NotNil(t, signed.SignedAt)

	_, err = f.svc.UpdateStatus(ctx, f.tc, contract.ID, "cancelled")
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, 2, f.repo.Ledger.Count("contract.status.update"))
}

func TestServiceUpdateAndSoftDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	contract := f.create(t, "C-5")
	ctx := context.Background()

	_, err := f.svc.Update(ctx, f.tc, contract.ID, UpdateInput{Terms: strPtr("Net 30"), Title: strPtr("Works agreement")})
	require.NoError(t, err)
	assert.Equal(t, []any{"terms"}, f.repo.Ledger.Last().Metadata()["changed_fields"])

	require.NoError(t, f.svc.Delete(ctx, f.tc, contract.ID))
	require.True(t, f.repo.Deleted(contract.ID))
	meta := f.repo.Ledger.Last().Metadata()
	assert.Equal(t, "soft", meta["mode"])
	assert.Equal(t, f.quote.String(), meta["quote_id"])

	_, err = f.svc.Get(ctx, f.tc, contract.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// The number of a deleted contract may be reused.
	f.create(t, "C-5")

	res, err := f.svc.List(ctx, f.tc, ListInput{Page: paging.Default(), QuoteID: &f.quote})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
}
