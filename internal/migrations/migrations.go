// Package migrations embeds the SQL schema migrations applied to the local
// store with goose at startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
