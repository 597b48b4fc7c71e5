// Package migrations embeds the PostgreSQL schema migrations applied by
// internal/database.MigrationRunner.
package migrations

import "embed"

// FS holds the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS
