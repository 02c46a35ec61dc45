// Package migrations embeds the goose SQL migrations for the vault's
// operational state database (lockout counters, recovery-code state).
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
