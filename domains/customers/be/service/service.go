package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/customers/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/validate"
)

// Customer is the customer resource returned to callers.
type Customer = persistence.Customer

// Field limits, in characters.
const (
	maxName    = 200
	maxPhone   = 50
	maxAddress = 500
	maxNotes   = 2000
)

// CreateInput defines the payload required to create a customer.
type CreateInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Notes   string
}

// UpdateInput holds the fields to change. nil fields are not submitted.
type UpdateInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	Notes   *string
}

// ListInput narrows a customer listing.
type ListInput struct {
	Page  paging.Page
	Query *string
}

// ListResult is one page of customers and the number of matches in scope.
type ListResult struct {
	Items []Customer
	Total int
}

// Service exposes the customers domain operations.
type Service interface {
	Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Customer, error)
	List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error)
	Create(ctx context.Context, tc tenant.Context, input CreateInput) (Customer, error)
	Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Customer, error)
	Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error
}

type service struct {
	repo  domainrepo.Repository
	newID func() uuid.UUID
}

// New builds a customers Service backed by the provided repository.
func New(repo domainrepo.Repository) Service {
	if repo == nil {
		panic("customer repository is required")
	}
	return &service{repo: repo, newID: uuid.New}
}

func (s *service) Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Customer, error) {
	var out Customer
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		customer, err := tx.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindCustomer, audit.OpGet, id))
		}
		if err != nil {
			return err
		}
		out = customer
		return tx.Record(audit.Found(audit.KindCustomer, customer.ID))
	})
	return out, err
}

func (s *service) List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error) {
	if err := input.Page.Validate(); err != nil {
		return ListResult{}, err
	}

	filters := map[string]string{}
	if input.Query != nil {
		filters["q"] = *input.Query
	}

	var out ListResult
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		items, total, err := tx.List(ctx, persistence.CustomerFilter{Query: input.Query}, input.Page)
		if err != nil {
			return err
		}
		out = ListResult{Items: items, Total: total}
		return tx.Record(audit.Listed(audit.KindCustomer, input.Page, customerIDs(items), total, filters))
	})
	return out, err
}

func (s *service) Create(ctx context.Context, tc tenant.Context, input CreateInput) (Customer, error) {
	fe := apperr.FieldErrors{}
	record := persistence.NewCustomer{
		ID:      s.newID(),
		Name:    validate.Text(fe, "name", input.Name, true, maxName),
		Email:   validate.Email(fe, "email", input.Email),
		Phone:   validate.Text(fe, "phone", input.Phone, false, maxPhone),
		Address: validate.Text(fe, "address", input.Address, false, maxAddress),
		Notes:   validate.Text(fe, "notes", input.Notes, false, maxNotes),
	}
	if err := fe.Err(); err != nil {
		return Customer{}, err
	}

	var out Customer
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		customer, err := tx.Insert(ctx, record)
		if err != nil {
			return err
		}
		out = customer
		return tx.Record(audit.Created(audit.KindCustomer, customer.ID, audit.Creation{}))
	})
	return out, err
}

func (s *service) Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Customer, error) {
	fe := apperr.FieldErrors{}
	validate.AtLeastOne(fe, input.Name != nil, input.Email != nil, input.Phone != nil, input.Address != nil, input.Notes != nil)
	patch := persistence.CustomerPatch{
		Name:    validate.OptionalText(fe, "name", input.Name, true, maxName),
		Email:   validate.OptionalEmail(fe, "email", input.Email),
		Phone:   validate.OptionalText(fe, "phone", input.Phone, false, maxPhone),
		Address: validate.OptionalText(fe, "address", input.Address, false, maxAddress),
		Notes:   validate.OptionalText(fe, "notes", input.Notes, false, maxNotes),
	}
	if err := fe.Err(); err != nil {
		return Customer{}, err
	}

	var out Customer
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindCustomer, audit.OpUpdate, id))
		}
		if err != nil {
			return err
		}

		var changes audit.ChangeSet
		changes.String("name", patch.Name, current.Name)
		changes.String("email", patch.Email, current.Email)
		changes.String("phone", patch.Phone, current.Phone)
		changes.String("address", patch.Address, current.Address)
		changes.String("notes", patch.Notes, current.Notes)

		out = current
		if !changes.Empty() {
			if out, err = tx.Update(ctx, id, patch); err != nil {
				return err
			}
		}
		return tx.Record(audit.Updated(audit.KindCustomer, id, changes.Fields()))
	})
	return out, err
}

// Delete soft-deletes a customer. Its projects are kept and counted in the
// audit metadata.
func (s *service) Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error {
	return s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		if _, err := tx.GetForUpdate(ctx, id); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return tx.Record(audit.Missing(audit.KindCustomer, audit.OpDelete, id))
			}
			return err
		}

		projects, err := tx.CountProjects(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("soft delete customer: %w", err)
		}
		return tx.Record(audit.Deleted(audit.KindCustomer, id, audit.Deletion{
			Mode:       audit.DeleteSoft,
			Dependents: map[string]int{"projects": projects},
		}))
	})
}

func customerIDs(items []Customer) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, c := range items {
		ids[i] = c.ID
	}
	return ids
}
