//go:build e2e

package store

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vaultfs/vaultfs/internal/config"
	"github.com/vaultfs/vaultfs/internal/models"
)

// TestPostgresBackendConformance runs a subset of the MetadataStore checks
// the SQLite-backed tests exercise (user create/read and quota
// get-or-create) against a real PostgreSQL container.
func TestPostgresBackendConformance(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("vaultfs_e2e"),
		postgres.WithUsername("vaultfs"),
		postgres.WithPassword("vaultfs"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	s, err := Open(config.DatabaseConfig{Driver: "postgres", DSN: dsn, MaxOpen: 5, MaxIdle: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	user := &models.User{Email: "postgres@example.com", PasswordHash: "hash", Role: models.RoleFree}
	id, err := s.CreateUser(ctx, user)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Email != "postgres@example.com" {
		t.Errorf("expected email postgres@example.com, got %q", got.Email)
	}

	quota, err := s.GetOrCreateQuota(ctx, id)
	if err != nil {
		t.Fatalf("GetOrCreateQuota: %v", err)
	}
	if quota.UserID != id {
		t.Errorf("expected quota for user %q, got %q", id, quota.UserID)
	}
}
