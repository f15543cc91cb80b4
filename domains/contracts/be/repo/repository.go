package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// Tx exposes the contract operations available inside one tenant unit of work.
type Tx interface {
	Get(ctx context.Context, id uuid.UUID) (persistence.Contract, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Contract, error)
	List(ctx context.Context, f persistence.ContractFilter, page paging.Page) ([]persistence.Contract, int, error)
	Insert(ctx context.Context, c persistence.NewContract) (persistence.Contract, error)
	Update(ctx context.Context, id uuid.UUID, p persistence.ContractPatch) (persistence.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Contract, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// LockQuote reads the parent quote and holds it until the unit ends, so
	// its status cannot move while a contract is created from it.
	LockQuote(ctx context.Context, id uuid.UUID) (persistence.Quote, error)
	Record(ev audit.Event) error
}

// Repository opens contract units of work.
type Repository interface {
	InTenant(ctx context.Context, tc tenant.Context, fn func(Tx) error) error
}

type postgresRepository struct {
	db       audit.UnitOfWork
	recorder *audit.Recorder
	store    *persistence.ContractStore
	quotes   *persistence.QuoteStore
}

func NewPostgresRepository(db audit.UnitOfWork, recorder *audit.Recorder, store *persistence.ContractStore, quotes *persistence.QuoteStore) Repository {
	if db == nil || recorder == nil {
		panic("tenant db and audit recorder are required")
	}
	if store == nil || quotes == nil {
		panic("contract and quote stores are required")
	}
	return &postgresRepository{db: db, recorder: recorder, store: store, quotes: quotes}
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

func (t *postgresTx) Get(ctx context.Context, id uuid.UUID) (persistence.Contract, error) {
	return t.repo.store.Get(ctx, t.tx, t.org, id)
}

func (t *postgresTx) GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Contract, error) {
	return t.repo.store.GetForUpdate(ctx, t.tx, t.org, id)
}

func (t *postgresTx) List(ctx context.Context, f persistence.ContractFilter, page paging.Page) ([]persistence.Contract, int, error) {
	return t.repo.store.List(ctx, t.tx, t.org, f, page)
}

func (t *postgresTx) Insert(ctx context.Context, c persistence.NewContract) (persistence.Contract, error) {
	return t.repo.store.Insert(ctx, t.tx, t.org, c)
}

func (t *postgresTx) Update(ctx context.Context, id uuid.UUID, p persistence.ContractPatch) (persistence.Contract, error) {
	return t.repo.store.Update(ctx, t.tx, t.org, id, p)
}

func (t *postgresTx) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Contract, error) {
	return t.repo.store.UpdateStatus(ctx, t.tx, t.org, id, status)
}

func (t *postgresTx) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return t.repo.store.SoftDelete(ctx, t.tx, t.org, id)
}

func (t *postgresTx) LockQuote(ctx context.Context, id uuid.UUID) (persistence.Quote, error) {
	return t.repo.quotes.GetForUpdate(ctx, t.tx, t.org, id)
}

func (t *postgresTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}
