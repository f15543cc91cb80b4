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

const QuotesTable = "quotes"

var quoteColumns = []string{
	"id", "organization_id", "project_id", "number", "title", "notes", "valid_until",
	"payload", "payload_sha256", "status", "created_at", "updated_at",
}

// Quote represents a row in the quotes table. Payload is validated against
// the quote payload schema before it is stored.
type Quote struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	ProjectID      uuid.UUID       `json:"project_id"`
	Number         string          `json:"number"`
	Title          string          `json:"title"`
	Notes          string          `json:"notes"`
	ValidUntil     *time.Time      `json:"valid_until"`
	Payload        json.RawMessage `json:"payload"`
	PayloadSHA256  string          `json:"payload_sha256"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type NewQuote struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	Number        string
	Title         string
	Notes         string
	ValidUntil    *time.Time
	Payload       json.RawMessage
	PayloadSHA256 string
}

type QuotePatch struct {
	Number     *string
	Title      *string
	Notes      *string
	ValidUntil *NullTime
}

type QuoteFilter struct {
	// Query matches number or title.
	Query     *string
	Status    *string
	ProjectID *uuid.UUID
}

type QuoteStore struct{}

func NewQuoteStore() *QuoteStore { return &QuoteStore{} }

func (s *QuoteStore) Get(ctx context.Context, q Querier, org, id uuid.UUID) (Quote, error) {
	b := psql.Select(quoteColumns...).From(QuotesTable).
		Where(orgIs(org)).Where(idIs("id", id))
	return queryOne(ctx, q, b, scanQuote)
}

func (s *QuoteStore) GetForUpdate(ctx context.Context, q Querier, org, id uuid.UUID) (Quote, error) {
	b := psql.Select(quoteColumns...).From(QuotesTable).
		Where(orgIs(org)).Where(idIs("id", id)).
		Suffix("FOR UPDATE")
	return queryOne(ctx, q, b, scanQuote)
}

func (s *QuoteStore) List(ctx context.Context, q Querier, org uuid.UUID, f QuoteFilter, page paging.Page) ([]Quote, int, error) {
	where := []sq.Sqlizer{orgIs(org)}
	if f.Query != nil {
		where = append(where, containsAny(*f.Query, "number", "title"))
	}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": *f.Status})
	}
	if f.ProjectID != nil {
		where = append(where, idIs("project_id", *f.ProjectID))
	}
	return listPage(ctx, q, QuotesTable, quoteColumns, where, page, scanQuote)
}

func (s *QuoteStore) Insert(ctx context.Context, q Querier, org uuid.UUID, n NewQuote) (Quote, error) {
	if n.ID == uuid.Nil {
		return Quote{}, fmt.Errorf("quote id is required")
	}
	b := psql.Insert(QuotesTable).
		Columns("id", "organization_id", "project_id", "number", "title", "notes", "valid_until", "payload", "payload_sha256").
		Values(n.ID, org, n.ProjectID, n.Number, n.Title, n.Notes, n.ValidUntil, string(payloadOrEmpty(n.Payload)), n.PayloadSHA256).
		Suffix("RETURNING " + joinColumns(quoteColumns))
	return queryOne(ctx, q, b, scanQuote)
}

func (s *QuoteStore) Update(ctx context.Context, q Querier, org, id uuid.UUID, p QuotePatch) (Quote, error) {
	set := map[string]any{"updated_at": sq.Expr("now()")}
	setIfPresent(set, "number", p.Number)
	setIfPresent(set, "title", p.Title)
	setIfPresent(set, "notes", p.Notes)
	setNullTime(set, "valid_until", p.ValidUntil)
	return s.update(ctx, q, org, id, set)
}

func (s *QuoteStore) UpdateStatus(ctx context.Context, q Querier, org, id uuid.UUID, status string) (Quote, error) {
	return s.update(ctx, q, org, id, map[string]any{"status": status, "updated_at": sq.Expr("now()")})
}

func (s *QuoteStore) UpdatePayload(ctx context.Context, q Querier, org, id uuid.UUID, payload json.RawMessage, sha string) (Quote, error) {
	return s.update(ctx, q, org, id, map[string]any{
		"payload":        string(payload),
		"payload_sha256": sha,
		"updated_at":     sq.Expr("now()"),
	})
}

func (s *QuoteStore) update(ctx context.Context, q Querier, org, id uuid.UUID, set map[string]any) (Quote, error) {
	b := psql.Update(QuotesTable).SetMap(set).
		Where(orgIs(org)).Where(idIs("id", id)).
		Suffix("RETURNING " + joinColumns(quoteColumns))
	return queryOne(ctx, q, b, scanQuote)
}

// CountContracts counts every contract referencing a quote, soft-deleted
// ones included, since those still hold the foreign key.
func (s *QuoteStore) CountContracts(ctx context.Context, q Querier, org, id uuid.UUID) (int, error) {
	return countOf(ctx, q, ContractsTable, orgIs(org), idIs("quote_id", id))
}

func (s *QuoteStore) Delete(ctx context.Context, q Querier, org, id uuid.UUID) error {
	return execAffecting(ctx, q, psql.Delete(QuotesTable).Where(orgIs(org)).Where(idIs("id", id)))
}

func scanQuote(row pgx.Row) (Quote, error) {
	var (
		qt      Quote
		payload []byte
	)
	err := row.Scan(&qt.ID, &qt.OrganizationID, &qt.ProjectID, &qt.Number, &qt.Title, &qt.Notes, &qt.ValidUntil,
		&payload, &qt.PayloadSHA256, &qt.Status, &qt.CreatedAt, &qt.UpdatedAt)
	qt.Payload = json.RawMessage(payload)
	return qt, err
}

func payloadOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
