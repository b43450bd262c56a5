// Package store is the durable MetadataStore: structural records (User,
// File, Folder, UploadSession, Quota) persisted via GORM on either SQLite
// (single-node) or PostgreSQL (HA-capable), selected by configuration.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vaultfs/vaultfs/internal/config"
	"github.com/vaultfs/vaultfs/internal/models"
)

// Store is the GORM-backed MetadataStore.
type Store struct {
	db *gorm.DB
}

// Open connects to the database described by cfg and brings its schema up
// to date: SQLite via gorm.AutoMigrate, PostgreSQL via the embedded
// golang-migrate migrations in internal/store/migrations.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)

		if err := runPostgresMigrations(context.Background(), cfg.DSN); err != nil {
			return nil, fmt.Errorf("failed to run database migration: %w", err)
		}
	} else {
		if err := db.AutoMigrate(allModels()...); err != nil {
			return nil, fmt.Errorf("failed to run database migration: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// OpenGORM wraps an already-open *gorm.DB, used by tests against an
// in-memory SQLite connection. It always migrates with gorm.AutoMigrate.
func OpenGORM(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying *gorm.DB for advanced queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck verifies the connection is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func allModels() []any {
	return []any{
		&models.User{},
		&models.RefreshToken{},
		&models.File{},
		&models.Folder{},
		&models.UploadSession{},
		&models.Quota{},
	}
}
