package migrations

import "embed"

// FS contains embedded SQLite migrations for the unit catalog.
//
//go:embed *.sql
var FS embed.FS
