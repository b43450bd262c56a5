package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vaultfs/vaultfs/internal/logger"
	"github.com/vaultfs/vaultfs/internal/store/migrations"
)

// runPostgresMigrations applies the embedded schema migrations via
// golang-migrate. PostgreSQL advisory locks (taken automatically by the
// postgres driver) keep concurrent vaultfsd instances from racing on the
// same migration run. SQLite uses gorm.AutoMigrate instead, since the
// embedded single-file database has no concurrent-migrator problem to
// guard against.
func runPostgresMigrations(ctx context.Context, connString string) error {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := migratepostgres.WithInstance(db, &migratepostgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    "vaultfs",
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		logger.Warn("database schema is in a dirty state", "version", version)
	}

	return nil
}
