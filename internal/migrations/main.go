// Package migrations holds the audit store schema migrations.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the collection applied by the db CLI commands.
var Migrations = migrate.NewMigrations()
