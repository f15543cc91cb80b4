package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
)

const HandoversTable = "handovers"

var handoverColumns = []string{
	"id", "organization_id", "project_id", "recipient_name", "notes", "scheduled_for",
	"payload", "payload_sha256", "status", "completed_at", "created_at", "updated_at",
}

// Handover represents a row in the handovers table.
type Handover struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	ProjectID      uuid.UUID       `json:"project_id"`
	RecipientName  string          `json:"recipient_name"`
	Notes          string          `json:"notes"`
	ScheduledFor   *time.Time      `json:"scheduled_for"`
	Payload        json.RawMessage `json:"payload"`
	PayloadSHA256  string          `json:"payload_sha256"`
	Status         string          `json:"status"`
	CompletedAt    *time.Time      `json:"completed_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type NewHandover struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	RecipientName string
	Notes         string
	ScheduledFor  *time.Time
	Payload       json.RawMessage
	PayloadSHA256 string
}

type HandoverPatch struct {
	RecipientName *string
	Notes         *string
	ScheduledFor  *NullTime
}

type HandoverFilter struct {
	// Query matches the recipient name.
	Query     *string
	Status    *string
	ProjectID *uuid.UUID
}

type HandoverStore struct{}

func NewHandoverStore() *HandoverStore { return &HandoverStore{} }

func (s *HandoverStore) Get(ctx context.Context, q Querier, org, id uuid.UUID) (Handover, error) {
	b := psql.Select(handoverColumns...).From(HandoversTable).
		Where(orgIs(org)).Where(idIs("id", id))
	return queryOne(ctx, q, b, scanHandover)
}

func (s *HandoverStore) GetForUpdate(ctx context.Context, q Querier, org, id uuid.UUID) (Handover, error) {
	b := psql.Select(handoverColumns...).From(HandoversTable).
		Where(orgIs(org)).Where(idIs("id", id)).
		Suffix("FOR UPDATE")
	return queryOne(ctx, q, b, scanHandover)
}

func (s *HandoverStore) List(ctx context.Context, q Querier, org uuid.UUID, f HandoverFilter, page paging.Page) ([]Handover, int, error) {
	where := []sq.Sqlizer{orgIs(org)}
	if f.Query != nil {
		where = append(where, containsAny(*f.Query, "recipient_name"))
	}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": *f.Status})
	}
	if f.ProjectID != nil {
		where = append(where, idIs("project_id", *f.ProjectID))
	}
	return listPage(ctx, q, HandoversTable, handoverColumns, where, page, scanHandover)
}

func (s *HandoverStore) Insert(ctx context.Context, q Querier, org uuid.UUID, n NewHandover) (Handover, error) {
	if n.ID == uuid.Nil {
		return Handover{}, fmt.Errorf("handover id is required")
	}
	b := psql.Insert(HandoversTable).
		Columns("id", "organization_id", "project_id", "recipient_name", "notes", "scheduled_for", "payload", "payload_sha256").
		Values(n.ID, org, n.ProjectID, n.RecipientName, n.Notes, n.ScheduledFor, string(payloadOrEmpty(n.Payload)), n.PayloadSHA256).
		Suffix("RETURNING " + joinColumns(handoverColumns))
	return queryOne(ctx, q, b, scanHandover)
}

func (s *HandoverStore) Update(ctx context.Context, q Querier, org, id uuid.UUID, p HandoverPatch) (Handover, error) {
	set := map[string]any{"updated_at": sq.Expr("now()")}
	setIfPresent(set, "recipient_name", p.RecipientName)
	setIfPresent(set, "notes", p.Notes)
	setNullTime(set, "scheduled_for", p.ScheduledFor)
	return s.update(ctx, q, org, id, set)
}

// UpdateStatus moves a handover to status. completed_at is stamped on
// entering completed.
func (s *HandoverStore) UpdateStatus(ctx context.Context, q Querier, org, id uuid.UUID, status string) (Handover, error) {
	set := map[string]any{"status": status, "updated_at": sq.Expr("now()")}
	if status == "completed" {
		set["completed_at"] = sq.Expr("COALESCE(completed_at, now())")
	}
	return s.update(ctx, q, org, id, set)
}

func (s *HandoverStore) UpdatePayload(ctx context.Context, q Querier, org, id uuid.UUID, payload json.RawMessage, sha string) (Handover, error) {
	return s.update(ctx, q, org, id, map[string]any{
		"payload":        string(payload),
		"payload_sha256": sha,
		"updated_at":     sq.Expr("now()"),
	})
}

func (s *HandoverStore) update(ctx context.Context, q Querier, org, id uuid.UUID, set map[string]any) (Handover, error) {
	b := psql.Update(HandoversTable).SetMap(set).
		Where(orgIs(org)).Where(idIs("id", id)).
		Suffix("RETURNING " + joinColumns(handoverColumns))
	return queryOne(ctx, q, b, scanHandover)
}

func (s *HandoverStore) Delete(ctx context.Context, q Querier, org, id uuid.UUID) error {
	return execAffecting(ctx, q, psql.Delete(HandoversTable).Where(orgIs(org)).Where(idIs("id", id)))
}

func scanHandover(row pgx.Row) (Handover, error) {
	var (
		h       Handover
		payload []byte
	)
	err := row.Scan(&h.ID, &h.OrganizationID, &h.ProjectID, &h.RecipientName, &h.Notes, &h.ScheduledFor,
		&payload, &h.PayloadSHA256, &h.Status, &h.CompletedAt, &h.CreatedAt, &h.UpdatedAt)
	h.Payload = json.RawMessage(payload)
	return h, err
}
