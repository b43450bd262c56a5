//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/vaultfs/vaultfs/internal/models"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	s, err := OpenGORM(db)
	if err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}
	return s
}

func TestUserCRUD(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	user := &models.User{Email: "alice@example.com", PasswordHash: "hash", Role: models.RoleFree}
	id, err := s.CreateUser(ctx, user)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("expected email alice@example.com, got %q", got.Email)
	}

	_, err = s.CreateUser(ctx, &models.User{Email: "alice@example.com", PasswordHash: "other"})
	if err == nil {
		t.Error("expected conflict error for duplicate email")
	}
}

func TestRefreshTokenCapEvictsOldest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	user := &models.User{Email: "bob@example.com", PasswordHash: "hash"}
	userID, err := s.CreateUser(ctx, user)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	for i := 0; i < models.MaxRefreshTokens+2; i++ {
		token := time.Now().Add(time.Duration(i) * time.Millisecond).String()
		if err := s.AddRefreshToken(ctx, userID, token, time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("AddRefreshToken: %v", err)
		}
	}

	var count int64
	s.db.Model(&models.RefreshToken{}).Where("user_id = ?", userID).Count(&count)
	if count != models.MaxRefreshTokens {
		t.Errorf("expected %d refresh tokens retained, got %d", models.MaxRefreshTokens, count)
	}
}

func TestFileLifecycleQueries(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	user := &models.User{Email: "carol@example.com", PasswordHash: "hash"}
	userID, err := s.CreateUser(ctx, user)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	past := time.Now().Add(-time.Second)
	file := &models.File{
		UserID:       userID,
		StorageKey:   "key-1",
		OriginalName: "a.txt",
		Size:         100,
		ExpiresAt:    &past,
		StorageTier:  models.TierHot,
	}
	if _, err := s.CreateFile(ctx, file); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	expired, err := s.ListExpiredFiles(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("ListExpiredFiles: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired file, got %d", len(expired))
	}

	if err := s.SoftDeleteFile(ctx, file.ID, time.Now()); err != nil {
		t.Fatalf("SoftDeleteFile: %v", err)
	}

	expired, err = s.ListExpiredFiles(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("ListExpiredFiles: %v", err)
	}
	if len(expired) != 0 {
		t.Errorf("expected 0 expired files after soft delete, got %d", len(expired))
	}

	totalSize, count, err := s.AggregateUserStorage(ctx, userID)
	if err != nil {
		t.Fatalf("AggregateUserStorage: %v", err)
	}
	if totalSize != 0 || count != 0 {
		t.Errorf("expected zeroed aggregate after soft delete, got size=%d count=%d", totalSize, count)
	}
}

func TestFolderPathCascade(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	user := &models.User{Email: "dave@example.com", PasswordHash: "hash"}
	userID, err := s.CreateUser(ctx, user)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	root := &models.Folder{UserID: userID, Name: "a", Path: "/a", Depth: 0}
	if _, err := s.CreateFolder(ctx, root); err != nil {
		t.Fatalf("CreateFolder root: %v", err)
	}
	child := &models.Folder{UserID: userID, Name: "b", ParentID: &root.ID, Path: "/a/b", Depth: 1}
	if _, err := s.CreateFolder(ctx, child); err != nil {
		t.Fatalf("CreateFolder child: %v", err)
	}

	if err := s.RenamePathPrefix(ctx, userID, "/a", "/renamed"); err != nil {
		t.Fatalf("RenamePathPrefix: %v", err)
	}

	got, err := s.GetFolder(ctx, child.ID)
	if err != nil {
		t.Fatalf("GetFolder: %v", err)
	}
	if got.Path != "/renamed/b" {
		t.Errorf("expected cascaded path /renamed/b, got %q", got.Path)
	}
}

func TestPurgeTerminalSessionsRemovesOldTerminalOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	old := &models.UploadSession{
		SessionID:      "sess-1",
		UserID:         "u-1",
		Filename:       "f.bin",
		TotalSize:      100,
		ChunkSize:      100,
		TotalChunks:    1,
		Status:         models.SessionCompleted,
		StartedAt:      time.Now(),
		LastActivityAt: time.Now().Add(-8 * 24 * time.Hour),
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	if err := s.CreateUploadSession(ctx, old); err != nil {
		t.Fatalf("CreateUploadSession: %v", err)
	}

	recent := &models.UploadSession{
		SessionID:      "sess-2",
		UserID:         "u-1",
		Filename:       "g.bin",
		TotalSize:      100,
		ChunkSize:      100,
		TotalChunks:    1,
		Status:         models.SessionFailed,
		StartedAt:      time.Now(),
		LastActivityAt: time.Now(),
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	if err := s.CreateUploadSession(ctx, recent); err != nil {
		t.Fatalf("CreateUploadSession: %v", err)
	}

	removed, err := s.PurgeTerminalSessions(ctx, time.Now(), 7*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeTerminalSessions: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 session removed, got %d", removed)
	}

	if _, err := s.GetUploadSession(ctx, "sess-2"); err != nil {
		t.Errorf("expected recent session to survive purge: %v", err)
	}
}

func TestQuotaGetOrCreate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	q1, err := s.GetOrCreateQuota(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetOrCreateQuota: %v", err)
	}
	q1.Usage.Storage = 500
	if err := s.UpdateQuota(ctx, q1); err != nil {
		t.Fatalf("UpdateQuota: %v", err)
	}

	q2, err := s.GetOrCreateQuota(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetOrCreateQuota second call: %v", err)
	}
	if q2.Usage.Storage != 500 {
		t.Errorf("expected persisted usage 500, got %d", q2.Usage.Storage)
	}
}
