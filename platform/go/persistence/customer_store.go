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

const CustomersTable = "customers"

var customerColumns = []string{
	"id", "organization_id", "name", "email", "phone", "address", "notes", "created_at", "updated_at",
}

// Customer represents a live row in the customers table.
type Customer struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCustomer captures the fields required to insert a customer.
type NewCustomer struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Phone   string
	Address string
	Notes   string
}

// CustomerPatch holds the columns to change; nil fields are left untouched.
type CustomerPatch struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	Notes   *string
}

// CustomerFilter narrows a customer listing.
type CustomerFilter struct {
	// Query matches name or email.
	Query *string
}

// CustomerStore exposes the customers table. Soft-deleted rows are invisible
// to every method.
type CustomerStore struct{}

func NewCustomerStore() *CustomerStore { return &CustomerStore{} }

func customerScope(org uuid.UUID) []sq.Sqlizer {
	return []sq.Sqlizer{orgIs(org), sq.Expr("deleted_at IS NULL")}
}

// Get returns a live customer of org.
func (s *CustomerStore) Get(ctx context.Context, q Querier, org, id uuid.UUID) (Customer, error) {
	b := psql.Select(customerColumns...).From(CustomersTable).
		Where(sq.And(customerScope(org))).Where(idIs("id", id))
	return queryOne(ctx, q, b, scanCustomer)
}

// GetForUpdate returns a live customer and locks it until the transaction ends.
func (s *CustomerStore) GetForUpdate(ctx context.Context, q Querier, org, id uuid.UUID) (Customer, error) {
	b := psql.Select(customerColumns...).From(CustomersTable).
		Where(sq.And(customerScope(org))).Where(idIs("id", id)).
		Suffix("FOR UPDATE")
	return queryOne(ctx, q, b, scanCustomer)
}

// List returns one page of customers and the total number of matches.
func (s *CustomerStore) List(ctx context.Context, q Querier, org uuid.UUID, f CustomerFilter, page paging.Page) ([]Customer, int, error) {
	where := customerScope(org)
	if f.Query != nil {
		where = append(where, containsAny(*f.Query, "name", "email"))
	}
	return listPage(ctx, q, CustomersTable, customerColumns, where, page, scanCustomer)
}

// Insert creates a customer owned by org.
func (s *CustomerStore) Insert(ctx context.Context, q Querier, org uuid.UUID, c NewCustomer) (Customer, error) {
	if c.ID == uuid.Nil {
		return Customer{}, fmt.Errorf("customer id is required")
	}
	b := psql.Insert(CustomersTable).
		Columns("id", "organization_id", "name", "email", "phone", "address", "notes").
		Values(c.ID, org, c.Name, c.Email, c.Phone, c.Address, c.Notes).
		Suffix("RETURNING " + joinColumns(customerColumns))
	return queryOne(ctx, q, b, scanCustomer)
}

// Update applies a patch and returns the updated row.
func (s *CustomerStore) Update(ctx context.Context, q Querier, org, id uuid.UUID, p CustomerPatch) (Customer, error) {
	set := map[string]any{"updated_at": sq.Expr("now()")}
	setIfPresent(set, "name", p.Name)
	setIfPresent(set, "email", p.Email)
	setIfPresent(set, "phone", p.Phone)
	setIfPresent(set, "address", p.Address)
	setIfPresent(set, "notes", p.Notes)

	b := psql.Update(CustomersTable).SetMap(set).
		Where(sq.And(customerScope(org))).Where(idIs("id", id)).
		Suffix("RETURNING " + joinColumns(customerColumns))
	return queryOne(ctx, q, b, scanCustomer)
}

// SoftDelete marks a live customer deleted and returns the deletion time.
func (s *CustomerStore) SoftDelete(ctx context.Context, q Querier, org, id uuid.UUID) (time.Time, error) {
	b := psql.Update(CustomersTable).
		Set("deleted_at", sq.Expr("now()")).
		Where(sq.And(customerScope(org))).Where(idIs("id", id)).
		Suffix("RETURNING deleted_at")
	return queryOne(ctx, q, b, func(row pgx.Row) (time.Time, error) {
		var at time.Time
		err := row.Scan(&at)
		return at, err
	})
}

// CountProjects counts the projects that reference a customer.
func (s *CustomerStore) CountProjects(ctx context.Context, q Querier, org, id uuid.UUID) (int, error) {
	return countOf(ctx, q, ProjectsTable, orgIs(org), idIs("customer_id", id))
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
