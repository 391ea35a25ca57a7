package migrations

import "embed"

// FS contains the Postgres schema.
//
//go:embed *.sql
var FS embed.FS
