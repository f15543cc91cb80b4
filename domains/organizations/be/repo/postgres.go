package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/domains/organizations/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
)

// SystemDB opens transactions without tenant binding.
type SystemDB interface {
	WithSystem(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// PostgresRepository implements the organization registry on the shared
// persistence layer.
type PostgresRepository struct {
	db    SystemDB
	store *persistence.OrganizationStore
}

func NewPostgresRepository(db SystemDB, store *persistence.OrganizationStore) *PostgresRepository {
	if db == nil {
		panic("system db is required")
	}
	if store == nil {
		panic("organization store is required")
	}
	return &PostgresRepository{db: db, store: store}
}

func (r *PostgresRepository) Create(ctx context.Context, n persistence.NewOrganization) (service.Organization, error) {
	var out service.Organization
	err := r.db.WithSystem(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = r.store.Insert(ctx, tx, n)
		return err
	})
	return out, err
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Organization, error) {
	var out service.Organization
	err := r.db.WithSystem(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = r.store.Get(ctx, tx, id)
		return err
	})
	return out, err
}

func (r *PostgresRepository) List(ctx context.Context) ([]service.Organization, error) {
	var out []service.Organization
	err := r.db.WithSystem(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = r.store.List(ctx, tx)
		return err
	})
	return out, err
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) (service.Organization, error) {
	var out service.Organization
	err := r.db.WithSystem(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = r.store.SetStatus(ctx, tx, id, status)
		return err
	})
	return out, err
}

func (r *PostgresRepository) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool
	err := r.db.WithSystem(ctx, func(tx pgx.Tx) error {
		var err error
		active, err = r.store.IsActive(ctx, tx, id)
		return err
	})
	return active, err
}
