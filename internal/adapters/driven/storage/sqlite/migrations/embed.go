// Package migrations holds the schema of the SQLite vector index.
// Files are applied in numeric order; *.down.sql files are for manual rollback.
package migrations

import "embed"

// Up holds the forward migrations.
//
//go:embed *.up.sql
var Up embed.FS
