package migrations

import "github.com/uptrace/bun/migrate"

// Migrations collects the schema steps; each file registers itself by its numeric prefix.
var Migrations = migrate.NewMigrations()
