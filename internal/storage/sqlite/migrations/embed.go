package migrations

import "embed"

// FS contains embedded SQLite migrations for the local force cache.
//
//go:embed *.sql
var FS embed.FS
