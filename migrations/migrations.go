// Package migrations embeds the goose SQL migrations for the schema.
package migrations

import "embed"

// FS holds every migration file shipped with the binary.
//
//go:embed *.sql
var FS embed.FS
