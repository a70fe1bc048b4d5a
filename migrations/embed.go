// Package migrations embeds SQL migrations for the PostgreSQL blob store.
package migrations

import "embed"

// FS holds the goose migration files.
//
//go:embed *.sql
var FS embed.FS
