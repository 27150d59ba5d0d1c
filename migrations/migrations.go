// Package migrations embeds the Postgres schema for the collections
// backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
