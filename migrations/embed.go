// Package migrations embeds the portal's numbered SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
