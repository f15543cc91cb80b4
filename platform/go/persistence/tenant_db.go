package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// DefaultTenantRole is the database role tenant transactions switch to. Row
// level security policies apply to it; the connecting role owns the tables.
const DefaultTenantRole = "app_tenant"

// Querier is the subset of pgx shared by pools and transactions. Stores take
// a Querier so they run inside whatever unit of work the caller opened.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TenantDB opens transactions bound to a tenant context.
type TenantDB struct {
	pool txBeginner
	role string
}

type TenantDBConfig struct {
	Pool *pgxpool.Pool
	// Role defaults to DefaultTenantRole.
	Role string
}

func NewTenantDB(cfg TenantDBConfig) *TenantDB {
	if cfg.Pool == nil {
		panic("TenantDB requires pool")
	}

	role := strings.TrimSpace(cfg.Role)
	if role == "" {
		role = DefaultTenantRole
	}
	return &TenantDB{pool: cfg.Pool, role: role}
}

// WithSystem executes fn inside a transaction without tenant binding.
// No role switching is performed; the connection's identity applies. Used by
// the organization registry and migrations tooling only.
func (db *TenantDB) WithSystem(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// WithTenant executes fn inside a transaction running as the tenant role with
// the organization and actor of tc bound as transaction-local settings. The
// settings vanish at commit or rollback, so a pooled connection never carries
// one request's binding into the next.
func (db *TenantDB) WithTenant(ctx context.Context, tc tenant.Context, fn func(tx pgx.Tx) error) error {
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL ROLE %s", pgx.Identifier{db.role}.Sanitize())); err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`SELECT set_config('app.organization_id', $1, true), set_config('app.actor_id', $2, true)`,
		tc.OrganizationID.String(), tc.ActorID,
	); err != nil {
		return fmt.Errorf("bind tenant: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
