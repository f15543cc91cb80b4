package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
)

// psql builds Postgres statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// NullTime is a partial-update value for a nullable timestamp column.
// A nil Time clears the column.
type NullTime struct {
	Time *time.Time
}

// orgIs scopes a statement to one organization. RLS applies the same
// predicate; stating it here keeps isolation independent of the policy.
//
// uuid.UUID is an array type, so it must not go through sq.Eq, which would
// expand it into an IN list.
func orgIs(org uuid.UUID) sq.Sqlizer {
	return sq.Expr("organization_id = ?", org)
}

func idIs(column string, id uuid.UUID) sq.Sqlizer {
	return sq.Expr(column+" = ?", id)
}

// containsAny matches needle case-insensitively against any of the columns.
func containsAny(needle string, columns ...string) sq.Sqlizer {
	pattern := "%" + escapeLike(needle) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, c := range columns {
		or = append(or, sq.Expr(c+` ILIKE ? ESCAPE '\'`, pattern))
	}
	return or
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// pageOf applies the newest-first order and the offset window. The id
// tie-breaker keeps consecutive pages disjoint.
func pageOf(b sq.SelectBuilder, page paging.Page) sq.SelectBuilder {
	return b.OrderBy("created_at DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))
}

// queryOne runs a single-row statement and scans it.
func queryOne[T any](ctx context.Context, q Querier, b sq.Sqlizer, scan func(pgx.Row) (T, error)) (T, error) {
	var zero T
	query, args, err := b.ToSql()
	if err != nil {
		return zero, fmt.Errorf("build query: %w", err)
	}
	item, err := scan(q.QueryRow(ctx, query, args...))
	if err != nil {
		return zero, mapError(err)
	}
	return item, nil
}

// queryAll runs a multi-row statement and scans every row.
func queryAll[T any](ctx context.Context, q Querier, b sq.Sqlizer, scan func(pgx.Row) (T, error)) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, mapError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

// countOf counts the rows matched by the filters of a list query.
func countOf(ctx context.Context, q Querier, from string, where ...sq.Sqlizer) (int, error) {
	b := psql.Select("count(*)").From(from)
	for _, w := range where {
		b = b.Where(w)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var total int
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

// listPage returns one page of rows together with the total match count.
func listPage[T any](ctx context.Context, q Querier, table string, columns []string, where []sq.Sqlizer, page paging.Page, scan func(pgx.Row) (T, error)) ([]T, int, error) {
	if err := page.Validate(); err != nil {
		return nil, 0, err
	}

	b := psql.Select(columns...).From(table)
	for _, w := range where {
		b = b.Where(w)
	}

	items, err := queryAll(ctx, q, pageOf(b, page), scan)
	if err != nil {
		return nil, 0, err
	}
	total, err := countOf(ctx, q, table, where...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// execAffecting runs a statement and fails with not found when it touched no row.
func execAffecting(ctx context.Context, q Querier, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows)
	}
	return nil
}

// setIfPresent adds column to an update map when the patch carries it.
func setIfPresent[T any](set map[string]any, column string, v *T) {
	if v != nil {
		set[column] = *v
	}
}

func setNullTime(set map[string]any, column string, v *NullTime) {
	if v != nil {
		set[column] = v.Time
	}
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
