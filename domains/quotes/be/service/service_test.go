package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-fieldops/contracts"
	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/quotes/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

type fixture struct {
	svc     Service
	repo    *domainrepo.MemoryRepository
	tc      tenant.Context
	project uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	validator, err := persistence.NewPayloadValidator(contracts.PayloadSchemas())
	require.NoError(t, err)

	repo := domainrepo.NewMemoryRepository()
	org := uuid.New()
	f := fixture{
		svc:     New(repo, validator),
		repo:    repo,
		tc:      tenant.Context{OrganizationID: org, ActorID: "estimator", Role: tenant.RoleMember},
		project: uuid.New(),
	}
	repo.AddProject(org, f.project)
	return f
}

func (f fixture) create(t *testing.T, number string) Quote {
	t.Helper()
	q, err := f.svc.Create(context.Background(), f.tc, CreateInput{ProjectID: &f.project, Number: number, Title: "Roof repair"})
	require.NoError(t, err)
	return q
}

func TestServiceCreateHashesDefaultPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	quote := f.create(t, "Q-001")
	require.Equal(t, "draft", quote.Status)
	require.JSONEq(t, `{}`, string(quote.Payload))

	emptySHA, err := persistence.PayloadHash([]byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, emptySHA, quote.PayloadSHA256)

	entry := f.repo.Ledger.Last()
	require.Equal(t, "quote.create", entry.Action())
	assert.Equal(t, f.project.String(), entry.Metadata()["project_id"])
}

func TestServiceCreateRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.tc, CreateInput{
		ProjectID: &f.project,
		Number:    "Q-1",
		Title:     "Bad",
		Payload:   json.RawMessage(`{"items":[{"description":"Tiles","quantity":-2,"unit_price":1}]}`),
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "payload")
	require.Zero(t, f.repo.Ledger.Len())
}

func TestServiceCreateDuplicateNumberConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.create(t, "Q-7")
	_, err := f.svc.Create(context.Background(), f.tc, CreateInput{ProjectID: &f.project, Number: "Q-7", Title: "Again"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, 1, f.repo.Ledger.Len())
}

func TestServiceCreateWithMissingProject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	missing := uuid.New()
	_, err := f.svc.Create(context.Background(), f.tc, CreateInput{ProjectID: &missing, Number: "Q-2", Title: "Fence"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	msg, ok := apperr.PublicMessage(err)
	require.True(t, ok)
	require.Equal(t, "Project not found", msg)

	entry := f.repo.Ledger.Last()
	require.Equal(t, "quote.create.not_found", entry.Action())
	assert.Equal(t, missing.String(), entry.Metadata()["project_id"])
	assert.NotEmpty(t, entry.Metadata()["quote_id"])
}

func TestServiceUpdateValidUntil(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	quote := f.create(t, "Q-3")
	ctx := context.Background()

	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	set := &deadline
	updated, err := f.svc.Update(ctx, f.tc, quote.ID, UpdateInput{ValidUntil: &set})
	require.NoError(t, err)
	require.NotNil(t, updated.ValidUntil)
	require.True(t, deadline.Equal(*updated.ValidUntil))
	assert.Equal(t, []any{"valid_until"}, f.repo.Ledger.Last().Metadata()["changed_fields"])

	// The same instant in another zone is not a change.
	sameInstant := deadline.UTC()
	same := &sameInstant
	_, err = f.svc.Update(ctx, f.tc, quote.ID, UpdateInput{ValidUntil: &same})
	require.NoError(t, err)
	assert.Equal(t, []any{}, f.repo.Ledger.Last().Metadata()["changed_fields"])

	var cleared *time.Time
	updated, err = f.svc.Update(ctx, f.tc, quote.ID, UpdateInput{ValidUntil: &cleared})
	require.NoError(t, err)
	require.Nil(t, updated.ValidUntil)
}

func TestServicePayloadUpdateRecordsHashes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	quote := f.create(t, "Q-4")
	payload := json.RawMessage(`{"currency":"EUR","items":[{"description":"Slate","quantity":40,"unit_price":3.2}]}`)

	updated, err := f.svc.UpdatePayload(context.Background(), f.tc, quote.ID, payload)
	require.NoError(t, err)
	require.NotEqual(t, quote.PayloadSHA256, updated.PayloadSHA256)

	entry := f.repo.Ledger.Last()
	require.Equal(t, "quote.payload.update", entry.Action())
	meta := entry.Metadata()
	assert.Equal(t, quote.PayloadSHA256, meta["previous_sha256"])
	assert.Equal(t, updated.PayloadSHA256, meta["sha256"])
	assert.Equal(t, []any{"currency", "items"}, meta["changed_keys"])
	assert.NotContains(t, meta, "payload")

	// Reordered keys hash equally and change nothing.
	_, err = f.svc.UpdatePayload(context.Background(), f.tc, quote.ID,
		json.RawMessage(`{"items":[{"unit_price":3.2,"quantity":40,"description":"Slate"}],"currency":"EUR"}`))
	require.NoError(t, err)
	assert.Equal(t, []any{}, f.repo.Ledger.Last().Metadata()["changed_keys"])

	_, err = f.svc.UpdatePayload(context.Background(), f.tc, quote.ID, nil)
	require.True(t, apperr.IsValidation(err))
}

func TestServiceStatusMachine(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	quote := f.create(t, "Q-5")
	ctx := context.Background()

	for _, step := range []string{"sent", "expired", "draft", "sent", "accepted"} {
		_, err := f.svc.UpdateStatus(ctx, f.tc, quote.ID, step)
		require.NoError(t, err, step)
	}
	_, err := f.svc.UpdateStatus(ctx, f.tc, quote.ID, "draft")
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Equal(t, 5, f.repo.Ledger.Count("quote.status.update"))
}

func TestServiceDeleteBlockedByContracts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	quote := f.create(t, "Q-6")
	f.repo.SetContractCount(quote.ID, 1)

	err := f.svc.Delete(context.Background(), f.tc, quote.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.True(t, f.repo.Exists(quote.ID))
	require.Zero(t, f.repo.Ledger.Count("quote.delete"))

	f.repo.SetContractCount(quote.ID, 0)
	require.NoError(t, f.svc.Delete(context.Background(), f.tc, quote.ID))
	meta := f.repo.Ledger.Last().Metadata()
	assert.Equal(t, "hard", meta["mode"])
	assert.Equal(t, "draft", meta["status"])
	assert.Equal(t, f.project.String(), meta["project_id"])
}

func TestServiceListByProject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, n := range []string{"A-1", "A-2", "A-3"} {
		f.create(t, n)
	}
	res, err := f.svc.List(context.Background(), f.tc, ListInput{Page: paging.Page{Limit: 2}, ProjectID: &f.project})
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)
	require.Len(t, res.Items, 2)
	require.Equal(t, "A-3", res.Items[0].Number)

	meta := f.repo.Ledger.Last().Metadata()
	assert.EqualValues(t, 2, meta["result_count"])
	assert.EqualValues(t, 3, meta["total_count"])
}
