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

const ContractsTable = "contracts"

var contractColumns = []string{
	"id", "organization_id", "quote_id", "project_id", "number", "title", "terms", "status", "signed_at", "created_at", "updated_at",
}

// Contract represents a live row in the contracts table.
type Contract struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	QuoteID        uuid.UUID  `json:"quote_id"`
	ProjectID      uuid.UUID  `json:"project_id"`
	Number         string     `json:"number"`
	Title          string     `json:"title"`
	Terms          string     `json:"terms"`
	Status         string     `json:"status"`
	SignedAt       *time.Time `json:"signed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type NewContract struct {
	ID        uuid.UUID
	QuoteID   uuid.UUID
	ProjectID uuid.UUID
	Number    string
	Title     string
	Terms     string
}

type ContractPatch struct {
	Number *string
	Title  *string
	Terms  *string
}

type ContractFilter struct {
	// Query matches number or title.
	Query     *string
	Status    *string
	ProjectID *uuid.UUID
	QuoteID   *uuid.UUID
}

// ContractStore exposes the contracts table. Soft-deleted rows are invisible
// to every method.
type ContractStore struct{}

func NewContractStore() *ContractStore { return &ContractStore{} }

func contractScope(org uuid.UUID) []sq.Sqlizer {
	return []sq.Sqlizer{orgIs(org), sq.Expr("deleted_at IS NULL")}
}

func (s *ContractStore) Get(ctx context.Context, q Querier, org, id uuid.UUID) (Contract, error) {
	b := psql.Select(contractColumns...).From(ContractsTable).
		Where(sq.And(contractScope(org))).Where(idIs("id", id))
	return queryOne(ctx, q, b, scanContract)
}

func (s *ContractStore) GetForUpdate(ctx context.Context, q Querier, org, id uuid.UUID) (Contract, error) {
	b := psql.Select(contractColumns...).From(ContractsTable).
		Where(sq.And(contractScope(org))).Where(idIs("id", id)).
		Suffix("FOR UPDATE")
	return queryOne(ctx, q, b, scanContract)
}

func (s *ContractStore) List(ctx context.Context, q Querier, org uuid.UUID, f ContractFilter, page paging.Page) ([]Contract, int, error) {
	where := contractScope(org)
	if f.Query != nil {
		where = append(where, containsAny(*f.Query, "number", "title"))
	}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": *f.Status})
	}
	if f.ProjectID != nil {
		where = append(where, idIs("project_id", *f.ProjectID))
	}
	if f.QuoteID != nil {
		where = append(where, idIs("quote_id", *f.QuoteID))
	}
	return listPage(ctx, q, ContractsTable, contractColumns, where, page, scanContract)
}

func (s *ContractStore) Insert(ctx context.Context, q Querier, org uuid.UUID, n NewContract) (Contract, error) {
	if n.ID == uuid.Nil {
		return Contract{}, fmt.Errorf("contract id is required")
	}
	b := psql.Insert(ContractsTable).
		Columns("id", "organization_id", "quote_id", "project_id", "number", "title", "terms").
		Values(n.ID, org, n.QuoteID, n.ProjectID, n.Number, n.Title, n.Terms).
		Suffix("RETURNING " + joinColumns(contractColumns))
	return queryOne(ctx, q, b, scanContract)
}

func (s *ContractStore) Update(ctx context.Context, q Querier, org, id uuid.UUID, p ContractPatch) (Contract, error) {
	set := map[string]any{"updated_at": sq.Expr("now()")}
	setIfPresent(set, "number", p.Number)
	setIfPresent(set, "title", p.Title)
	setIfPresent(set, "terms", p.Terms)
	return s.update(ctx, q, org, id, set)
}

// UpdateStatus moves a contract to status. signed_at is stamped on entering
// signed and cleared otherwise.
func (s *ContractStore) UpdateStatus(ctx context.Context, q Querier, org, id uuid.UUID, status string) (Contract, error) {
	set := map[string]any{"status": status, "updated_at": sq.Expr("now()")}
	if status == "signed" {
		set["signed_at"] = sq.Expr("COALESCE(signed_at, now())")
	} else {
		set["signed_at"] = nil
	}
	return s.update(ctx, q, org, id, set)
}

func (s *ContractStore) update(ctx context.Context, q Querier, org, id uuid.UUID, set map[string]any) (Contract, error) {
	b := psql.Update(ContractsTable).SetMap(set).
		Where(sq.And(contractScope(org))).Where(idIs("id", id)).
		Suffix("RETURNING " + joinColumns(contractColumns))
	return queryOne(ctx, q, b, scanContract)
}

// SoftDelete marks a live contract deleted.
func (s *ContractStore) SoftDelete(ctx context.Context, q Querier, org, id uuid.UUID) error {
	return execAffecting(ctx, q, psql.Update(ContractsTable).
		Set("deleted_at", sq.Expr("now()")).
		Where(sq.And(contractScope(org))).Where(idIs("id", id)))
}

func scanContract(row pgx.Row) (Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.OrganizationID, &c.QuoteID, &c.ProjectID, &c.Number, &c.Title, &c.Terms, &c.Status, &c.SignedAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
