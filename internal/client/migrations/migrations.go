// Package migrations embeds the goose SQL migrations of the CLI's local store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
