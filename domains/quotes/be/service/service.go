package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/quotes/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/lifecycle"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/validate"
)

// Quote is the quote resource returned to callers.
type Quote = persistence.Quote

const (
	maxNumber = 64
	maxTitle  = 200
	maxNotes  = 2000
)

// Statuses is the quote status machine.
var Statuses = lifecycle.New("draft", map[string][]string{
	"draft":    {"sent"},
	"sent":     {"accepted", "rejected", "expired", "draft"},
	"expired":  {"draft"},
	"accepted": nil,
	"rejected": nil,
})

// PayloadValidator checks a payload document against a named schema.
type PayloadValidator interface {
	Validate(name string, payload json.RawMessage) error
}

type CreateInput struct {
	ProjectID  *uuid.UUID
	Number     string
	Title      string
	Notes      string
	ValidUntil *time.Time
	// Payload defaults to an empty object.
	Payload json.RawMessage
}

// UpdateInput holds the fields to change. ValidUntil is set with a nil
// inner value to clear the date.
type UpdateInput struct {
	Number     *string
	Title      *string
	Notes      *string
	ValidUntil **time.Time
}

type ListInput struct {
	Page      paging.Page
	Query     *string
	Status    *string
	ProjectID *uuid.UUID
}

type ListResult struct {
	Items []Quote
	Total int
}

// Service exposes the quotes domain operations.
type Service interface {
	Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Quote, error)
	List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error)
	Create(ctx context.Context, tc tenant.Context, input CreateInput) (Quote, error)
	Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Quote, error)
	UpdateStatus(ctx context.Context, tc tenant.Context, id uuid.UUID, status string) (Quote, error)
	UpdatePayload(ctx context.Context, tc tenant.Context, id uuid.UUID, payload json.RawMessage) (Quote, error)
	Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error
}

type service struct {
	repo     domainrepo.Repository
	payloads PayloadValidator
	newID    func() uuid.UUID
}

// New builds a quotes Service. payloads validates quote payload documents.
func New(repo domainrepo.Repository, payloads PayloadValidator) Service {
	if repo == nil {
		panic("quote repository is required")
	}
	if payloads == nil {
		panic("payload validator is required")
	}
	return &service{repo: repo, payloads: payloads, newID: uuid.New}
}

func (s *service) Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Quote, error) {
	var out Quote
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		quote, err := tx.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindQuote, audit.OpGet, id))
		}
		if err != nil {
			return err
		}
		out = quote
		return tx.Record(audit.Found(audit.KindQuote, quote.ID))
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

	filter := persistence.QuoteFilter{Query: input.Query, Status: input.Status, ProjectID: input.ProjectID}
	var out ListResult
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		items, total, err := tx.List(ctx, filter, input.Page)
		if err != nil {
			return err
		}
		out = ListResult{Items: items, Total: total}
		ids := make([]uuid.UUID, len(items))
		for i, q := range items {
			ids[i] = q.ID
		}
		return tx.Record(audit.Listed(audit.KindQuote, input.Page, ids, total, filters))
	})
	return out, err
}

func (s *service) Create(ctx context.Context, tc tenant.Context, input CreateInput) (Quote, error) {
	fe := apperr.FieldErrors{}
	if input.ProjectID == nil {
		fe.Add("project_id", "project_id is required")
	}
	record := persistence.NewQuote{
		ID:         s.newID(),
		Number:     validate.Text(fe, "number", input.Number, true, maxNumber),
		Title:      validate.Text(fe, "title", input.Title, true, maxTitle),
		Notes:      validate.Text(fe, "notes", input.Notes, false, maxNotes),
		ValidUntil: utc(input.ValidUntil),
		Payload:    input.Payload,
	}
	if len(record.Payload) == 0 {
		record.Payload = json.RawMessage(`{}`)
	}
	if err := fe.Err(); err != nil {
		return Quote{}, err
	}
	if err := s.payloads.Validate(persistence.QuotePayloadSchema, record.Payload); err != nil {
		return Quote{}, err
	}
	sha, err := persistence.PayloadHash(record.Payload)
	if err != nil {
		return Quote{}, apperr.Invalid("payload", "payload must be valid JSON")
	}
	record.PayloadSHA256 = sha
	record.ProjectID = *input.ProjectID

	var out Quote
	err = s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		ok, err := tx.ProjectExists(ctx, record.ProjectID)
		if err != nil {
			return err
		}
		if !ok {
			return tx.Record(audit.ParentMissing(audit.KindQuote, record.ID, audit.KindProject, record.ProjectID))
		}

		quote, err := tx.Insert(ctx, record)
		if err != nil {
			return err
		}
		out = quote
		return tx.Record(audit.Created(audit.KindQuote, quote.ID, audit.Creation{
			Related: map[string]uuid.UUID{"project_id": quote.ProjectID},
			Status:  quote.Status,
		}))
	})
	return out, err
}

func (s *service) Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Quote, error) {
	fe := apperr.FieldErrors{}
	validate.AtLeastOne(fe, input.Number != nil, input.Title != nil, input.Notes != nil, input.ValidUntil != nil)
	patch := persistence.QuotePatch{
		Number: validate.OptionalText(fe, "number", input.Number, true, maxNumber),
		Title:  validate.OptionalText(fe, "title", input.Title, true, maxTitle),
		Notes:  validate.OptionalText(fe, "notes", input.Notes, false, maxNotes),
	}
	var validUntil **time.Time
	if input.ValidUntil != nil {
		v := utc(*input.ValidUntil)
		validUntil = &v
		patch.ValidUntil = &persistence.NullTime{Time: v}
	}
	if err := fe.Err(); err != nil {
		return Quote{}, err
	}

	var out Quote
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindQuote, audit.OpUpdate, id))
		}
		if err != nil {
			return err
		}

		var changes audit.ChangeSet
		changes.String("number", patch.Number, current.Number)
		changes.String("title", patch.Title, current.Title)
		changes.String("notes", patch.Notes, current.Notes)
		changes.Time("valid_until", validUntil, current.ValidUntil)

		out = current
		if !changes.Empty() {
			if out, err = tx.Update(ctx, id, patch); err != nil {
				return err
			}
		}
		return tx.Record(audit.Updated(audit.KindQuote, id, changes.Fields()))
	})
	return out, err
}

func (s *service) UpdateStatus(ctx context.Context, tc tenant.Context, id uuid.UUID, status string) (Quote, error) {
	to, err := Statuses.ParseStatus("status", status)
	if err != nil {
		return Quote{}, err
	}

	var out Quote
	err = s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindQuote, audit.OpStatusUpdate, id))
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
		return tx.Record(audit.StatusChanged(audit.KindQuote, id, current.Status, to))
	})
	return out, err
}

// UpdatePayload replaces the payload document. The audit record carries the
// content hashes and the top-level keys that changed, never the document.
func (s *service) UpdatePayload(ctx context.Context, tc tenant.Context, id uuid.UUID, payload json.RawMessage) (Quote, error) {
	if len(payload) == 0 {
		return Quote{}, apperr.Invalid("payload", "payload is required")
	}
	if err := s.payloads.Validate(persistence.QuotePayloadSchema, payload); err != nil {
		return Quote{}, err
	}
	sha, err := persistence.PayloadHash(payload)
	if err != nil {
		return Quote{}, apperr.Invalid("payload", "payload must be valid JSON")
	}

	var out Quote
	err = s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindQuote, audit.OpPayloadUpdate, id))
		}
		if err != nil {
			return err
		}

		changed, err := persistence.PayloadChangedKeys(current.Payload, payload)
		if err != nil {
			return fmt.Errorf("diff quote payload: %w", err)
		}
		out = current
		if sha != current.PayloadSHA256 {
			if out, err = tx.UpdatePayload(ctx, id, payload, sha); err != nil {
				return err
			}
		}
		return tx.Record(audit.PayloadChanged(audit.KindQuote, id, current.PayloadSHA256, sha, changed))
	})
	return out, err
}

// Delete removes a quote. Quotes referenced by a contract, deleted or not,
// cannot be removed.
func (s *service) Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error {
	return s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindQuote, audit.OpDelete, id))
		}
		if err != nil {
			return err
		}

		contracts, err := tx.CountContracts(ctx, id)
		if err != nil {
			return err
		}
		if contracts > 0 {
			return apperr.Conflict("quote has contracts")
		}
		if err := tx.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete quote: %w", err)
		}
		return tx.Record(audit.Deleted(audit.KindQuote, id, audit.Deletion{
			Mode:    audit.DeleteHard,
			Related: map[string]uuid.UUID{"project_id": current.ProjectID},
			Status:  current.Status,
		}))
	})
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
