// Package migrations embeds the SQL schema migrations for the fiscal store.
package migrations

import "embed"

// FS holds all *.up.sql migration files, applied in version order.
//
//go:embed *.up.sql
var FS embed.FS
