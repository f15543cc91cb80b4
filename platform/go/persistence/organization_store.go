package persistence

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const OrganizationsTable = "organizations"

var organizationColumns = []string{"id", "slug", "name", "status", "created_at"}

// Organization statuses.
const (
	OrganizationActive    = "active"
	OrganizationSuspended = "suspended"
)

// Organization is a tenant of the platform.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type NewOrganization struct {
	ID   uuid.UUID
	Slug string
	Name string
}

// OrganizationStore is the registry of tenants. It runs outside tenant
// binding, as the table owner.
type OrganizationStore struct{}

func NewOrganizationStore() *OrganizationStore { return &OrganizationStore{} }

func (s *OrganizationStore) Insert(ctx context.Context, q Querier, n NewOrganization) (Organization, error) {
	if n.ID == uuid.Nil {
		return Organization{}, fmt.Errorf("organization id is required")
	}
	b := psql.Insert(OrganizationsTable).
		Columns("id", "slug", "name").
		Values(n.ID, n.Slug, n.Name).
		Suffix("RETURNING " + joinColumns(organizationColumns))
	return queryOne(ctx, q, b, scanOrganization)
}

func (s *OrganizationStore) Get(ctx context.Context, q Querier, id uuid.UUID) (Organization, error) {
	b := psql.Select(organizationColumns...).From(OrganizationsTable).Where(idIs("id", id))
	return queryOne(ctx, q, b, scanOrganization)
}

// List returns every organization ordered by slug.
func (s *OrganizationStore) List(ctx context.Context, q Querier) ([]Organization, error) {
	b := psql.Select(organizationColumns...).From(OrganizationsTable).OrderBy("slug")
	return queryAll(ctx, q, b, scanOrganization)
}

func (s *OrganizationStore) SetStatus(ctx context.Context, q Querier, id uuid.UUID, status string) (Organization, error) {
	b := psql.Update(OrganizationsTable).
		Set("status", status).
		Where(idIs("id", id)).
		Suffix("RETURNING " + joinColumns(organizationColumns))
	return queryOne(ctx, q, b, scanOrganization)
}

// IsActive reports whether id names an active organization. Unknown ids are
// inactive, not an error.
func (s *OrganizationStore) IsActive(ctx context.Context, q Querier, id uuid.UUID) (bool, error) {
	b := psql.Select("1").From(OrganizationsTable).
		Where(idIs("id", id)).Where(sq.Eq{"status": OrganizationActive}).
		Prefix("SELECT EXISTS (").Suffix(")")
	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var active bool
	if err := q.QueryRow(ctx, query, args...).Scan(&active); err != nil {
		return false, mapError(err)
	}
	return active, nil
}

func scanOrganization(row pgx.Row) (Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Slug, &o.Name, &o.Status, &o.CreatedAt)
	return o, err
}
