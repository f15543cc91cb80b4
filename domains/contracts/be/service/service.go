package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/contracts/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/lifecycle"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/validate"
)

// Contract is the contract resource returned to callers.
type Contract = persistence.Contract

const (
	maxNumber = 64
	maxTitle  = 200
	maxTerms  = 20000
)

// acceptedQuote is the only quote status a contract may be drawn from.
const acceptedQuote = "accepted"

// Statuses is the contract status machine.
var Statuses = lifecycle.New("draft", map[string][]string{
	"draft":     {"sent", "cancelled"},
	"sent":      {"signed", "cancelled", "draft"},
	"signed":    nil,
	"cancelled": nil,
})

type CreateInput struct {
	QuoteID *uuid.UUID
	Number  string
	Title   string
	Terms   string
}

type UpdateInput struct {
	Number *string
	Title  *string
	Terms  *string
}

type ListInput struct {
	Page      paging.Page
	Query     *string
	Status    *string
	ProjectID *uuid.UUID
	QuoteID   *uuid.UUID
}

type ListResult struct {
	Items []Contract
	Total int
}

// Service exposes the contracts domain operations.
type Service interface {
	Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Contract, error)
	List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error)
	Create(ctx context.Context, tc tenant.Context, input CreateInput) (Contract, error)
	Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Contract, error)
	UpdateStatus(ctx context.Context, tc tenant.Context, id uuid.UUID, status string) (Contract, error)
	Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error
}

type service struct {
	repo  domainrepo.Repository
	newID func() uuid.UUID
}

func New(repo domainrepo.Repository) Service {
	if repo == nil {
		panic("contract repository is required")
	}
	return &service{repo: repo, newID: uuid.New}
}

func (s *service) Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Contract, error) {
	var out Contract
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		contract, err := tx.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindContract, audit.OpGet, id))
		}
		if err != nil {
			return err
		}
		out = contract
		return tx.Record(audit.Found(audit.KindContract, contract.ID))
	})
	return out, err
}

func (s *service) List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error) {
	if err := input.Page.Validate(); err != nil {
		return ListResult{}, err
	}
	filters := map[string]string{}
	if input.Status != nil {
		if _, err := Statuses.ParseStatus("status", *input.Status); err != nil {
			return ListResult{}, err
		}
		filters["status"] = *input.Status
	}
	if input.Query != nil {
		filters["q"] = *input.Query
	}
	if input.ProjectID != nil {
		filters["project_id"] = input.ProjectID.String()
	}
	if input.QuoteID != nil {
		filters["quote_id"] = input.QuoteID.String()
	}

	filter := persistence.ContractFilter{Query: input.Query, Status: input.Status, ProjectID: input.ProjectID, QuoteID: input.QuoteID}
	var out ListResult
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		items, total, err := tx.List(ctx, filter, input.Page)
		if err != nil {
			return err
		}
		out = ListResult{Items: items, Total: total}
		ids := make([]uuid.UUID, len(items))
		for i, c := range items {
			ids[i] = c.ID
		}
		return tx.Record(audit.Listed(audit.KindContract, input.Page, ids, total, filters))
	})
	return out, err
}

// Create draws a contract from an accepted quote. The project is taken from
// the quote and cannot be supplied.
func (s *service) Create(ctx context.Context, tc tenant.Context, input CreateInput) (Contract, error) {
	fe := apperr.FieldErrors{}
	if input.QuoteID == nil {
		fe.Add("quote_id", "quote_id is required")
	}
	record := persistence.NewContract{
		ID:     s.newID(),
		Number: validate.Text(fe, "number", input.Number, true, maxNumber),
		Title:  validate.Text(fe, "title", input.Title, true, maxTitle),
		Terms:  validate.Text(fe, "terms", input.Terms, false, maxTerms),
	}
	if err := fe.Err(); err != nil {
		return Contract{}, err
	}
	record.QuoteID = *input.QuoteID

	var out Contract
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		quote, err := tx.LockQuote(ctx, record.QuoteID)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.ParentMissing(audit.KindContract, record.ID, audit.KindQuote, record.QuoteID))
		}
		if err != nil {
			return err
		}
		if quote.Status != acceptedQuote {
			return apperr.Conflict("quote is not accepted")
		}

		record.ProjectID = quote.ProjectID
		contract, err := tx.Insert(ctx, record)
		if err != nil {
			return err
		}
		out = contract
		return tx.Record(audit.Created(audit.KindContract, contract.ID, audit.Creation{
			Related: map[string]uuid.UUID{"quote_id": contract.QuoteID, "project_id": contract.ProjectID},
			Status:  contract.Status,
		}))
	})
	return out, err
}

func (s *service) Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Contract, error) {
	fe := apperr.FieldErrors{}
	validate.AtLeastOne(fe, input.Number != nil, input.Title != nil, input.Terms != nil)
	patch := persistence.ContractPatch{
		Number: validate.OptionalText(fe, "number", input.Number, true, maxNumber),
		Title:  validate.OptionalText(fe, "title", input.Title, true, maxTitle),
		Terms:  validate.OptionalText(fe, "terms", input.Terms, false, maxTerms),
	}
	if err := fe.Err(); err != nil {
		return Contract{}, err
	}

	var out Contract
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindContract, audit.OpUpdate, id))
		}
		if err != nil {
			return err
		}

		var changes audit.ChangeSet
		changes.String("number", patch.Number, current.Number)
		changes.String("title", patch.Title, current.Title)
		changes.String("terms", patch.Terms, current.Terms)

		out = current
		if !changes.Empty() {
			if out, err = tx.Update(ctx, id, patch); err != nil {
				return err
			}
		}
		return tx.Record(audit.Updated(audit.KindContract, id, changes.Fields()))
	})
	return out, err
}

// UpdateStatus moves a contract through its lifecycle. signed_at is stamped
// when the contract is signed.
func (s *service) UpdateStatus(ctx context.Context, tc tenant.Context, id uuid.UUID, status string) (Contract, error) {
	to, err := Statuses.ParseStatus("status", status)
	if err != nil {
		return Contract{}, err
	}

	var out Contract
	err = s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindContract, audit.OpStatusUpdate, id))
		}
		if err != nil {
			return err
		}
		if err := Statuses.Transition(current.Status, to); err != nil {
			return err
		}

		out = current
		if current.Status != to {
			if out, err = tx.UpdateStatus(ctx, id, to); err != nil {
				return err
			}
		}
		return tx.Record(audit.StatusChanged(audit.KindContract, id, current.Status, to))
	})
	return out, err
}

// Delete soft-deletes a contract. The row keeps referencing its quote.
func (s *service) Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error {
	return s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindContract, audit.OpDelete, id))
		}
		if err != nil {
			return err
		}
		if err := tx.SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("soft delete contract: %w", err)
		}
		return tx.Record(audit.Deleted(audit.KindContract, id, audit.Deletion{
			Mode:    audit.DeleteSoft,
			Related: map[string]uuid.UUID{"quote_id": current.QuoteID, "project_id": current.ProjectID},
			Status:  current.Status,
		}))
	})
}
