package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// Tx exposes the customer operations available inside one tenant unit of
// work. Every call is scoped to the unit's organization.
type Tx interface {
	Get(ctx context.Context, id uuid.UUID) (persistence.Customer, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Customer, error)
	List(ctx context.Context, f persistence.CustomerFilter, page paging.Page) ([]persistence.Customer, int, error)
	Insert(ctx context.Context, c persistence.NewCustomer) (persistence.Customer, error)
	Update(ctx context.Context, id uuid.UUID, p persistence.CustomerPatch) (persistence.Customer, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (time.Time, error)
	CountProjects(ctx context.Context, id uuid.UUID) (int, error)
	// Record stores the audit event committed with the unit of work.
	Record(ev audit.Event) error
}

// Repository opens customer units of work.
type Repository interface {
	InTenant(ctx context.Context, tc tenant.Context, fn func(Tx) error) error
}

type postgresRepository struct {
	db       audit.UnitOfWork
	recorder *audit.Recorder
	store    *persistence.CustomerStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(db audit.UnitOfWork, recorder *audit.Recorder, store *persistence.CustomerStore) Repository {
	if db == nil {
		panic("tenant db is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	if store == nil {
		panic("customer store is required")
	}
	return &postgresRepository{db: db, recorder: recorder, store: store}
}

func (r *postgresRepository) InTenant(ctx context.Context, tc tenant.Context, fn func(Tx) error) error {
	return r.recorder.Run(ctx, r.db, tc, func(tx pgx.Tx, scope *audit.Scope) error {
		return fn(&postgresTx{tx: tx, org: tc.OrganizationID, store: r.store, scope: scope})
	})
}

type postgresTx struct {
	tx    pgx.Tx
	org   uuid.UUID
	store *persistence.CustomerStore
	scope *audit.Scope
}

func (t *postgresTx) Get(ctx context.Context, id uuid.UUID) (persistence.Customer, error) {
	return t.store.Get(ctx, t.tx, t.org, id)
}

func (t *postgresTx) GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Customer, error) {
	return t.store.GetForUpdate(ctx, t.tx, t.org, id)
}

func (t *postgresTx) List(ctx context.Context, f persistence.CustomerFilter, page paging.Page) ([]persistence.Customer, int, error) {
	return t.store.List(ctx, t.tx, t.org, f, page)
}

func (t *postgresTx) Insert(ctx context.Context, c persistence.NewCustomer) (persistence.Customer, error) {
	return t.store.Insert(ctx, t.tx, t.org, c)
}

func (t *postgresTx) Update(ctx context.Context, id uuid.UUID, p persistence.CustomerPatch) (persistence.Customer, error) {
	return t.store.Update(ctx, t.tx, t.org, id, p)
}

func (t *postgresTx) SoftDelete(ctx context.Context, id uuid.UUID) (time.Time, error) {
	return t.store.SoftDelete(ctx, t.tx, t.org, id)
}

func (t *postgresTx) CountProjects(ctx context.Context, id uuid.UUID) (int, error) {
	return t.store.CountProjects(ctx, t.tx, t.org, id)
}

func (t *postgresTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}
