// Package migrations embeds the dispatch core's goose SQL migrations so
// pkg/database.RunMigrations can apply them without a filesystem dependency
// at deploy time.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
