package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
)

const AuditLogsTable = "audit_logs"

var auditColumns = []string{"id", "action", "actor", "organization_id", "resource_id", "metadata", "created_at"}

// AuditRecord is one row of the append-only audit ledger.
type AuditRecord struct {
	ID             uuid.UUID       `json:"id"`
	Action         string          `json:"action"`
	Actor          string          `json:"actor"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	ResourceID     *uuid.UUID      `json:"resource_id,omitempty"`
	Metadata       json.RawMessage `json:"metadata"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AuditFilter narrows an audit review listing.
type AuditFilter struct {
	Action     *string
	ResourceID *uuid.UUID
	Since      *time.Time
}

// AuditStore appends to and reads the audit ledger. The table rejects
// UPDATE and DELETE, so there are no methods for them.
type AuditStore struct{}

func NewAuditStore() *AuditStore { return &AuditStore{} }

// Append inserts rec under a savepoint of tx. A failed insert rolls back to
// the savepoint only, leaving tx usable. Inserting an id twice is a no-op so
// replays are idempotent.
func (s *AuditStore) Append(ctx context.Context, tx pgx.Tx, rec AuditRecord) error {
	if rec.ID == uuid.Nil || rec.OrganizationID == uuid.Nil {
		return errors.New("audit record requires id and organization")
	}

	query, args, err := psql.Insert(AuditLogsTable).
		Columns(auditColumns...).
		Values(rec.ID, rec.Action, rec.Actor, rec.OrganizationID, rec.ResourceID, string(rec.Metadata), rec.CreatedAt).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if _, err := sp.Exec(ctx, query, args...); err != nil {
		_ = sp.Rollback(ctx)
		return fmt.Errorf("append audit record: %w", mapError(err))
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func auditWhere(org uuid.UUID, f AuditFilter) []sq.Sqlizer {
	where := []sq.Sqlizer{orgIs(org)}
	if f.Action != nil {
		where = append(where, sq.Eq{"action": *f.Action})
	}
	if f.ResourceID != nil {
		where = append(where, idIs("resource_id", *f.ResourceID))
	}
	if f.Since != nil {
		where = append(where, sq.Expr("created_at >= ?", *f.Since))
	}
	return where
}

// List returns one page of records, newest first, and the total match count.
func (s *AuditStore) List(ctx context.Context, q Querier, org uuid.UUID, f AuditFilter, page paging.Page) ([]AuditRecord, int, error) {
	return listPage(ctx, q, AuditLogsTable, auditColumns, auditWhere(org, f), page, scanAuditRecord)
}

// Count returns the number of records matching f.
func (s *AuditStore) Count(ctx context.Context, q Querier, org uuid.UUID, f AuditFilter) (int, error) {
	return countOf(ctx, q, AuditLogsTable, auditWhere(org, f)...)
}

// Each streams matching records oldest first without paging them into memory.
func (s *AuditStore) Each(ctx context.Context, q Querier, org uuid.UUID, f AuditFilter, fn func(AuditRecord) error) error {
	b := psql.Select(auditColumns...).From(AuditLogsTable).Where(sq.And(auditWhere(org, f))).
		OrderBy("created_at", "id")
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			return mapError(err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return mapError(rows.Err())
}

func scanAuditRecord(row pgx.Row) (AuditRecord, error) {
	var (
		rec      AuditRecord
		metadata []byte
	)
	err := row.Scan(&rec.ID, &rec.Action, &rec.Actor, &rec.OrganizationID, &rec.ResourceID, &metadata, &rec.CreatedAt)
	rec.Metadata = json.RawMessage(metadata)
	return rec, err
}
