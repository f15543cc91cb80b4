package persistence

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
)

const ProjectsTable = "projects"

var projectColumns = []string{
	"id", "organization_id", "customer_id", "name", "description", "site_address", "status", "created_at", "updated_at",
}

// Project represents a row in the projects table.
type Project struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	SiteAddress    string    `json:"site_address"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type NewProject struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	Name        string
	Description string
	SiteAddress string
}

type ProjectPatch struct {
	Name        *string
	Description *string
	SiteAddress *string
}

type ProjectFilter struct {
	Query      *string
	Status     *string
	CustomerID *uuid.UUID
}

// ProjectDependents counts the rows removed together with a project.
type ProjectDependents struct {
	Quotes    int
	Contracts int
	Handovers int
}

type ProjectStore struct{}

func NewProjectStore() *ProjectStore { return &ProjectStore{} }

func (s *ProjectStore) Get(ctx context.Context, q Querier, org, id uuid.UUID) (Project, error) {
	b := psql.Select(projectColumns...).From(ProjectsTable).
		Where(orgIs(org)).Where(idIs("id", id))
	return queryOne(ctx, q, b, scanProject)
}

func (s *ProjectStore) GetForUpdate(ctx context.Context, q Querier, org, id uuid.UUID) (Project, error) {
	b := psql.Select(projectColumns...).From(ProjectsTable).
		Where(orgIs(org)).Where(idIs("id", id)).
		Suffix("FOR UPDATE")
	return queryOne(ctx, q, b, scanProject)
}

func (s *ProjectStore) List(ctx context.Context, q Querier, org uuid.UUID, f ProjectFilter, page paging.Page) ([]Project, int, error) {
	where := []sq.Sqlizer{orgIs(org)}
	if f.Query != nil {
		where = append(where, containsAny(*f.Query, "name", "site_address"))
	}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": *f.Status})
	}
	if f.CustomerID != nil {
		where = append(where, idIs("customer_id", *f.CustomerID))
	}
	return listPage(ctx, q, ProjectsTable, projectColumns, where, page, scanProject)
}

func (s *ProjectStore) Insert(ctx context.Context, q Querier, org uuid.UUID, p NewProject) (Project, error) {
	if p.ID == uuid.Nil {
		return Project{}, fmt.Errorf("project id is required")
	}
	b := psql.Insert(ProjectsTable).
		Columns("id", "organization_id", "customer_id", "name", "description", "site_address").
		Values(p.ID, org, p.CustomerID, p.Name, p.Description, p.SiteAddress).
		Suffix("RETURNING " + joinColumns(projectColumns))
	return queryOne(ctx, q, b, scanProject)
}

func (s *ProjectStore) Update(ctx context.Context, q Querier, org, id uuid.UUID, p ProjectPatch) (Project, error) {
	set := map[string]any{"updated_at": sq.Expr("now()")}
	setIfPresent(set, "name", p.Name)
	setIfPresent(set, "description", p.Description)
	setIfPresent(set, "site_address", p.SiteAddress)
	return s.update(ctx, q, org, id, set)
}

func (s *ProjectStore) UpdateStatus(ctx context.Context, q Querier, org, id uuid.UUID, status string) (Project, error) {
	return s.update(ctx, q, org, id, map[string]any{"status": status, "updated_at": sq.Expr("now()")})
}

func (s *ProjectStore) update(ctx context.Context, q Querier, org, id uuid.UUID, set map[string]any) (Project, error) {
	b := psql.Update(ProjectsTable).SetMap(set).
		Where(orgIs(org)).Where(idIs("id", id)).
		Suffix("RETURNING " + joinColumns(projectColumns))
	return queryOne(ctx, q, b, scanProject)
}

// Dependents counts the quotes, live contracts and handovers of a project.
func (s *ProjectStore) Dependents(ctx context.Context, q Querier, org, id uuid.UUID) (ProjectDependents, error) {
	var d ProjectDependents
	var err error
	if d.Quotes, err = countOf(ctx, q, QuotesTable, orgIs(org), idIs("project_id", id)); err != nil {
		return d, err
	}
	if d.Contracts, err = countOf(ctx, q, ContractsTable, orgIs(org), idIs("project_id", id), sq.Expr("deleted_at IS NULL")); err != nil {
		return d, err
	}
	if d.Handovers, err = countOf(ctx, q, HandoversTable, orgIs(org), idIs("project_id", id)); err != nil {
		return d, err
	}
	return d, nil
}

// Delete removes a project; quotes, contracts and handovers cascade.
func (s *ProjectStore) Delete(ctx context.Context, q Querier, org, id uuid.UUID) error {
	return execAffecting(ctx, q, psql.Delete(ProjectsTable).Where(orgIs(org)).Where(idIs("id", id)))
}

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.OrganizationID, &p.CustomerID, &p.Name, &p.Description, &p.SiteAddress, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
