// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS holds NNN_name.up.sql files applied in order.
//
//go:embed *.sql
var FS embed.FS
