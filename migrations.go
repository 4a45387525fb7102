package chatcreate

import "embed"

// MigrationsFS holds the SQL migrations applied at startup when a database is configured.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
