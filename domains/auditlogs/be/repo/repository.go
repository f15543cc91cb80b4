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

// Tx reads the audit ledger of the unit's organization.
type Tx interface {
	List(ctx context.Context, f persistence.AuditFilter, page paging.Page) ([]persistence.AuditRecord, int, error)
	Record(ev audit.Event) error
}

type Repository interface {
	InTenant(ctx context.Context, tc tenant.Context, fn func(Tx) error) error
}

type postgresRepository struct {
	db       audit.UnitOfWork
	recorder *audit.Recorder
	store    *persistence.AuditStore
}

func NewPostgresRepository(db audit.UnitOfWork, recorder *audit.Recorder, store *persistence.AuditStore) Repository {
	if db == nil {
		panic("tenant db is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	if store == nil {
		panic("audit store is required")
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
	store *persistence.AuditStore
	scope *audit.Scope
}

func (t *postgresTx) List(ctx context.Context, f persistence.AuditFilter, page paging.Page) ([]persistence.AuditRecord, int, error) {
	return t.store.List(ctx, t.tx, t.org, f, page)
}

func (t *postgresTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}
