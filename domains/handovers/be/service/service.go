package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/handovers/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/lifecycle"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/validate"
)

// Handover is the handover resource returned to callers.
type Handover = persistence.Handover

const (
	maxRecipient = 200
	maxNotes     = 2000
)

// Statuses is the handover status machine.
var Statuses = lifecycle.New("scheduled", map[string][]string{
	"scheduled":   {"in_progress", "cancelled"},
	"in_progress": {"completed", "cancelled"},
	"completed":   nil,
	"cancelled":   nil,
})

// PayloadValidator checks a payload document against a named schema.
type PayloadValidator interface {
	Validate(name string, payload json.RawMessage) error
}

type CreateInput struct {
	ProjectID     *uuid.UUID
	RecipientName string
	Notes         string
	ScheduledFor  *time.Time
	Payload       json.RawMessage
}

// UpdateInput holds the fields to change. ScheduledFor is set with a nil
// inner value to clear the date.
type UpdateInput struct {
	RecipientName *string
	Notes         *string
	ScheduledFor  **time.Time
}

type ListInput struct {
	Page      paging.Page
	Query     *string
	Status    *string
	ProjectID *uuid.UUID
}

type ListResult struct {
	Items []Handover
	Total int
}

type Service interface {
	Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Handover, error)
	List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error)
	Create(ctx context.Context, tc tenant.Context, input CreateInput) (Handover, error)
	Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Handover, error)
	UpdateStatus(ctx context.Context, tc tenant.Context, id uuid.UUID, status string) (Handover, error)
	UpdatePayload(ctx context.Context, tc tenant.Context, id uuid.UUID, payload json.RawMessage) (Handover, error)
	Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error
}

type service struct {
	repo     domainrepo.Repository
	payloads PayloadValidator
	newID    func() uuid.UUID
}

func New(repo domainrepo.Repository, payloads PayloadValidator) Service {
	if repo == nil {
		panic("handover repository is required")
	}
	if payloads == nil {
		panic("payload validator is required")
	}
	return &service{repo: repo, payloads: payloads, newID: uuid.New}
}

func (s *service) Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Handover, error) {
	var out Handover
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		handover, err := tx.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindHandover, audit.OpGet, id))
		}
		if err != nil {
			return err
		}
		out = handover
		return tx.Record(audit.Found(audit.KindHandover, handover.ID))
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

	filter := persistence.HandoverFilter{Query: input.Query, Status: input.Status, ProjectID: input.ProjectID}
	var out ListResult
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		items, total, err := tx.List(ctx, filter, input.Page)
		if err != nil {
			return err
		}
		out = ListResult{Items: items, Total: total}
		ids := make([]uuid.UUID, len(items))
		for i, h := range items {
			ids[i] = h.ID
		}
		return tx.Record(audit.Listed(audit.KindHandover, input.Page, ids, total, filters))
	})
	return out, err
}

func (s *service) checkPayload(payload json.RawMessage) (string, error) {
	if err := s.payloads.Validate(persistence.HandoverPayloadSchema, payload); err != nil {
		return "", err
	}
	sha, err := persistence.PayloadHash(payload)
	if err != nil {
		return "", apperr.Invalid("payload", "payload must be valid JSON")
	}
	return sha, nil
}

func (s *service) Create(ctx context.Context, tc tenant.Context, input CreateInput) (Handover, error) {
	fe := apperr.FieldErrors{}
	if input.ProjectID == nil {
		fe.Add("project_id", "project_id is required")
	}
	record := persistence.NewHandover{
		ID:            s.newID(),
		RecipientName: validate.Text(fe, "recipient_name", input.RecipientName, true, maxRecipient),
		Notes:         validate.Text(fe, "notes", input.Notes, false, maxNotes),
		ScheduledFor:  utc(input.ScheduledFor),
		Payload:       input.Payload,
	}
	if err := fe.Err(); err != nil {
		return Handover{}, err
	}
	if len(record.Payload) == 0 {
		record.Payload = json.RawMessage(`{}`)
	}
	sha, err := s.checkPayload(record.Payload)
	if err != nil {
		return Handover{}, err
	}
	record.PayloadSHA256 = sha
	record.ProjectID = *input.ProjectID

	var out Handover
	err = s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		ok, err := tx.ProjectExists(ctx, record.ProjectID)
		if err != nil {
			return err
		}
		if !ok {
			return tx.Record(audit.ParentMissing(audit.KindHandover, record.ID, audit.KindProject, record.ProjectID))
		}

		handover, err := tx.Insert(ctx, record)
		if err != nil {
			return err
		}
		out = handover
		return tx.Record(audit.Created(audit.KindHandover, handover.ID, audit.Creation{
			Related: map[string]uuid.UUID{"project_id": handover.ProjectID},
			Status:  handover.Status,
		}))
	})
	return out, err
}

func (s *service) Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Handover, error) {
	fe := apperr.FieldErrors{}
	validate.AtLeastOne(fe, input.RecipientName != nil, input.Notes != nil, input.ScheduledFor != nil)
	patch := persistence.HandoverPatch{
		RecipientName: validate.OptionalText(fe, "recipient_name", input.RecipientName, true, maxRecipient),
		Notes:         validate.OptionalText(fe, "notes", input.Notes, false, maxNotes),
	}
	var scheduled **time.Time
	if input.ScheduledFor != nil {
		v := utc(*input.ScheduledFor)
		scheduled = &v
		patch.ScheduledFor = &persistence.NullTime{Time: v}
	}
	if err := fe.Err(); err != nil {
		return Handover{}, err
	}

	var out Handover
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindHandover, audit.OpUpdate, id))
		}
		if err != nil {
			return err
		}

		var changes audit.ChangeSet
		changes.String("recipient_name", patch.RecipientName, current.RecipientName)
		changes.String("notes", patch.Notes, current.Notes)
		changes.Time("scheduled_for", scheduled, current.ScheduledFor)

		out = current
		if !changes.Empty() {
			if out, err = tx.Update(ctx, id, patch); err != nil {
				return err
			}
		}
		return tx.Record(audit.Updated(audit.KindHandover, id, changes.Fields()))
	})
	return out, err
}

// UpdateStatus moves a handover through its lifecycle. completed_at is
// stamped on completion.
func (s *service) UpdateStatus(ctx context.Context, tc tenant.Context, id uuid.UUID, status string) (Handover, error) {
	to, err := Statuses.ParseStatus("status", status)
	if err != nil {
		return Handover{}, err
	}

	var out Handover
	err = s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindHandover, audit.OpStatusUpdate, id))
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
		return tx.Record(audit.StatusChanged(audit.KindHandover, id, current.Status, to))
	})
	return out, err
}

func (s *service) UpdatePayload(ctx context.Context, tc tenant.Context, id uuid.UUID, payload json.RawMessage) (Handover, error) {
	if len(payload) == 0 {
		return Handover{}, apperr.Invalid("payload", "payload is required")
	}
	sha, err := s.checkPayload(payload)
	if err != nil {
		return Handover{}, err
	}

	var out Handover
	err = s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindHandover, audit.OpPayloadUpdate, id))
		}
		if err != nil {
			return err
		}

		changed, err := persistence.PayloadChangedKeys(current.Payload, payload)
		if err != nil {
			return fmt.Errorf("diff handover payload: %w", err)
		}
		out = current
		if sha != current.PayloadSHA256 {
			if out, err = tx.UpdatePayload(ctx, id, payload, sha); err != nil {
				return err
			}
		}
		return tx.Record(audit.PayloadChanged(audit.KindHandover, id, current.PayloadSHA256, sha, changed))
	})
	return out, err
}

func (s *service) Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error {
	return s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindHandover, audit.OpDelete, id))
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete handover: %w", err)
		}
		return tx.Record(audit.Deleted(audit.KindHandover, id, audit.Deletion{
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
