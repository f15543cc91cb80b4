// Package sqlassets embeds the SQL migrations so binaries stay self-contained.
package sqlassets

import "embed"

// Migrations holds the goose migrations, ordered by their numeric prefix.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations passed to goose.
const MigrationsDir = "migrations"
