package migrations

import "embed"

// FS contains embedded SQLite migrations for nations storage.
//
//go:embed *.sql
var FS embed.FS
