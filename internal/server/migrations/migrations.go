// Package migrations embeds the goose SQL migrations, one directory per
// dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

// Directory names inside Migrations.
const (
	SQLiteDir   = "sqlite"
	PostgresDir = "postgres"
)
