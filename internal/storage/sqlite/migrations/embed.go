package migrations

import "embed"

// FS contains the embedded match history migrations.
//
//go:embed *.sql
var FS embed.FS
