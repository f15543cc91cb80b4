// Package pgtest starts a disposable, fully migrated Postgres for integration
// tests. Callers skip under testing.Short() before calling Start.
package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
)

// Database is a migrated Postgres owned by one test.
type Database struct {
	DSN  string
	Pool *pgxpool.Pool
}

// Start runs postgres:16-alpine, applies every migration and returns a pool
// connected as the table owner. Everything is torn down with the test.
func Start(t *testing.T) Database {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fieldops"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// The listening port can open before the server accepts queries.
	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		pool, err = persistence.NewPool(context.Background(), persistence.PoolConfig{ConnString: dsn})
		return err == nil
	}, time.Minute, 500*time.Millisecond, "postgres did not accept connections")
	t.Cleanup(func() { persistence.ClosePool(pool) })

	require.NoError(t, persistence.Migrate(ctx, dsn, persistence.MigrateUp))

	return Database{DSN: dsn, Pool: pool}
}

// TenantDB returns a TenantDB over the test pool using the default tenant role.
func (d Database) TenantDB() *persistence.TenantDB {
	return persistence.NewTenantDB(persistence.TenantDBConfig{Pool: d.Pool})
}

// Organization registers an active organization and returns its id.
func (d Database) Organization(t *testing.T, slug string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := d.TenantDB().WithSystem(context.Background(), func(tx pgx.Tx) error {
		_, err := persistence.NewOrganizationStore().Insert(context.Background(), tx, persistence.NewOrganization{
			ID:   id,
			Slug: slug,
			Name: slug,
		})
		return err
	})
	require.NoError(t, err)
	return id
}
