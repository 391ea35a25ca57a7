package migrations

import "embed"

// FS contains the SQLite schema.
//
//go:embed *.sql
var FS embed.FS
