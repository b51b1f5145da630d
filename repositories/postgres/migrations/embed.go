// Package migrations embeds the goose SQL migrations for the Postgres schema.
package migrations

import "embed"

// Migrations holds every *.sql migration file
//
//go:embed *.sql
var Migrations embed.FS
