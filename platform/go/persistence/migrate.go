package persistence

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql (needed by goose)
	"github.com/pressly/goose/v3"

	sqlassets "github.com/zenGate-Global/palmyra-fieldops/database"
)

// MigrationDirection selects what Migrate does.
type MigrationDirection string

const (
	MigrateUp MigrationDirection = "up"
	// MigrateDown rolls back the most recent migration only.
	MigrateDown MigrationDirection = "down"
)

// Migrate applies or rolls back the embedded goose migrations.
func Migrate(ctx context.Context, dsn string, direction MigrationDirection) error {
	db, err := openMigrationDB(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	switch direction {
	case MigrateUp:
		if err := goose.UpContext(ctx, db, sqlassets.MigrationsDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	case MigrateDown:
		if err := goose.DownContext(ctx, db, sqlassets.MigrationsDir); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	return nil
}

// MigrationVersion returns the current migration version.
func MigrationVersion(ctx context.Context, dsn string) (int64, error) {
	db, err := openMigrationDB(dsn)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

func openMigrationDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("conn string is required")
	}

	goose.SetBaseFS(sqlassets.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set dialect: %w", err)
	}

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db for migrations: %w", err)
	}
	return db, nil
}
