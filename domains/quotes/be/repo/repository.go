package repo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// Tx exposes the quote operations available inside one tenant unit of work.
type Tx interface {
	Get(ctx context.Context, id uuid.UUID) (persistence.Quote, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Quote, error)
	List(ctx context.Context, f persistence.QuoteFilter, page paging.Page) ([]persistence.Quote, int, error)
	Insert(ctx context.Context, q persistence.NewQuote) (persistence.Quote, error)
	Update(ctx context.Context, id uuid.UUID, p persistence.QuotePatch) (persistence.Quote, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Quote, error)
	UpdatePayload(ctx context.Context, id uuid.UUID, payload json.RawMessage, sha string) (persistence.Quote, error)
	CountContracts(ctx context.Context, id uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ProjectExists(ctx context.Context, id uuid.UUID) (bool, error)
	Record(ev audit.Event) error
}

// Repository opens quote units of work.
type Repository interface {
	InTenant(ctx context.Context, tc tenant.Context, fn func(Tx) error) error
}

type postgresRepository struct {
	db       audit.UnitOfWork
	recorder *audit.Recorder
	store    *persistence.QuoteStore
	projects *persistence.ProjectStore
}

func NewPostgresRepository(db audit.UnitOfWork, recorder *audit.Recorder, store *persistence.QuoteStore, projects *persistence.ProjectStore) Repository {
	if db == nil || recorder == nil {
		panic("tenant db and audit recorder are required")
	}
	if store == nil || projects == nil {
		panic("quote and project stores are required")
	}
	return &postgresRepository{db: db, recorder: recorder, store: store, projects: projects}
}

func (r *postgresRepository) InTenant(ctx context.Context, tc tenant.Context, fn func(Tx) error) error {
	return r.recorder.Run(ctx, r.db, tc, func(tx pgx.Tx, scope *audit.Scope) error {
		return fn(&postgresTx{repo: r, tx: tx, org: tc.OrganizationID, scope: scope})
	})
}

type postgresTx struct {
	repo  *postgresRepository
	tx    pgx.Tx
	org   uuid.UUID
	scope *audit.Scope
}

func (t *postgresTx) Get(ctx context.Context, id uuid.UUID) (persistence.Quote, error) {
	return t.repo.store.Get(ctx, t.tx, t.org, id)
}

func (t *postgresTx) GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Quote, error) {
	return t.repo.store.GetForUpdate(ctx, t.tx, t.org, id)
}

func (t *postgresTx) List(ctx context.Context, f persistence.QuoteFilter, page paging.Page) ([]persistence.Quote, int, error) {
	return t.repo.store.List(ctx, t.tx, t.org, f, page)
}

func (t *postgresTx) Insert(ctx context.Context, q persistence.NewQuote) (persistence.Quote, error) {
	return t.repo.store.Insert(ctx, t.tx, t.org, q)
}

func (t *postgresTx) Update(ctx context.Context, id uuid.UUID, p persistence.QuotePatch) (persistence.Quote, error) {
	return t.repo.store.Update(ctx, t.tx, t.org, id, p)
}

func (t *postgresTx) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Quote, error) {
	return t.repo.store.UpdateStatus(ctx, t.tx, t.org, id, status)
}

func (t *postgresTx) UpdatePayload(ctx context.Context, id uuid.UUID, payload json.RawMessage, sha string) (persistence.Quote, error) {
	return t.repo.store.UpdatePayload(ctx, t.tx, t.org, id, payload, sha)
}

func (t *postgresTx) CountContracts(ctx context.Context, id uuid.UUID) (int, error) {
	return t.repo.store.CountContracts(ctx, t.tx, t.org, id)
}

func (t *postgresTx) Delete(ctx context.Context, id uuid.UUID) error {
	return t.repo.store.Delete(ctx, t.tx, t.org, id)
}

func (t *postgresTx) ProjectExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := t.repo.projects.Get(ctx, t.tx, t.org, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *postgresTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}
