// Package migrations embeds the PostgreSQL schema migrations applied by
// golang-migrate. SQLite deployments use GORM's AutoMigrate instead; see
// internal/store/migrate.go for why the two drivers diverge.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
