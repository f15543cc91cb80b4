package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// Tx exposes the project operations available inside one tenant unit of work.
type Tx interface {
	Get(ctx context.Context, id uuid.UUID) (persistence.Project, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Project, error)
	List(ctx context.Context, f persistence.ProjectFilter, page paging.Page) ([]persistence.Project, int, error)
	Insert(ctx context.Context, p persistence.NewProject) (persistence.Project, error)
	Update(ctx context.Context, id uuid.UUID, p persistence.ProjectPatch) (persistence.Project, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Project, error)
	Dependents(ctx context.Context, id uuid.UUID) (persistence.ProjectDependents, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// CustomerExists reports whether a live customer exists in the unit's organization.
	CustomerExists(ctx context.Context, id uuid.UUID) (bool, error)
	Record(ev audit.Event) error
}

// Repository opens project units of work.
type Repository interface {
	InTenant(ctx context.Context, tc tenant.Context, fn func(Tx) error) error
}

type postgresRepository struct {
	db        audit.UnitOfWork
	recorder  *audit.Recorder
	store     *persistence.ProjectStore
	customers *persistence.CustomerStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(db audit.UnitOfWork, recorder *audit.Recorder, store *persistence.ProjectStore, customers *persistence.CustomerStore) Repository {
	if db == nil || recorder == nil {
		panic("tenant db and audit recorder are required")
	}
	if store == nil || customers == nil {
		panic("project and customer stores are required")
	}
	return &postgresRepository{db: db, recorder: recorder, store: store, customers: customers}
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

func (t *postgresTx) Get(ctx context.Context, id uuid.UUID) (persistence.Project, error) {
	return t.repo.store.Get(ctx, t.tx, t.org, id)
}

func (t *postgresTx) GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Project, error) {
	return t.repo.store.GetForUpdate(ctx, t.tx, t.org, id)
}

func (t *postgresTx) List(ctx context.Context, f persistence.ProjectFilter, page paging.Page) ([]persistence.Project, int, error) {
	return t.repo.store.List(ctx, t.tx, t.org, f, page)
}

func (t *postgresTx) Insert(ctx context.Context, p persistence.NewProject) (persistence.Project, error) {
	return t.repo.store.Insert(ctx, t.tx, t.org, p)
}

func (t *postgresTx) Update(ctx context.Context, id uuid.UUID, p persistence.ProjectPatch) (persistence.Project, error) {
	return t.repo.store.Update(ctx, t.tx, t.org, id, p)
}

func (t *postgresTx) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Project, error) {
	return t.repo.store.UpdateStatus(ctx, t.tx, t.org, id, status)
}

func (t *postgresTx) Dependents(ctx context.Context, id uuid.UUID) (persistence.ProjectDependents, error) {
	return t.repo.store.Dependents(ctx, t.tx, t.org, id)
}

func (t *postgresTx) Delete(ctx context.Context, id uuid.UUID) error {
	return t.repo.store.Delete(ctx, t.tx, t.org, id)
}

func (t *postgresTx) CustomerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := t.repo.customers.Get(ctx, t.tx, t.org, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (t *postgresTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}
