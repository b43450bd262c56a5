package store

import (
	"context"
	"time"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
)

func (s *Store) GetFile(ctx context.Context, id string) (*models.File, error) {
	return getByField[models.File](s.db, ctx, "id", id, "file not found")
}

func (s *Store) GetFileByStorageKey(ctx context.Context, storageKey string) (*models.File, error) {
	return getByField[models.File](s.db, ctx, "storage_key", storageKey, "file not found")
}

func (s *Store) CreateFile(ctx context.Context, file *models.File) (string, error) {
	return createWithID(s.db, ctx, file, func(f *models.File, id string) { f.ID = id }, file.ID, "storage key already in use")
}

func (s *Store) UpdateFile(ctx context.Context, file *models.File) error {
	result := s.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", file.ID).Select(
		"FolderID", "Downloads", "LastDownloadAt", "LastAccessAt", "ExpiresAt",
		"IsPublic", "Password", "IsDeleted", "DeletedAt", "StorageTier",
		"MigrationStatus", "LastMigrationAt", "Metadata",
	).Updates(file)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cerrors.New(cerrors.CodeNotFound, "file not found")
	}
	return nil
}

// SoftDeleteFile marks a file deleted without removing the row, so download
// attempts resolve to NOT_FOUND while retaining it for audit/accounting.
func (s *Store) SoftDeleteFile(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "deleted_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cerrors.New(cerrors.CodeNotFound, "file not found or already deleted")
	}
	return nil
}

// ListExpiredFiles returns non-deleted files whose expiry has passed,
// ordered by ExpiresAt ascending, for the expiry sweeper.
func (s *Store) ListExpiredFiles(ctx context.Context, now time.Time, limit int) ([]*models.File, error) {
	var files []*models.File
	err := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ? AND is_deleted = ?", now, false).
		Order("expires_at asc").
		Limit(limit).
		Find(&files).Error
	return files, err
}

// ListMigrationCandidates returns non-deleted files on tier whose download
// activity crosses the given thresholds, for the tier migrator.
func (s *Store) ListMigrationCandidates(ctx context.Context, tier models.StorageTier, downloadsAbove int64, lastDownloadBefore time.Time, limit int) ([]*models.File, error) {
	var files []*models.File
	q := s.db.WithContext(ctx).Where("storage_tier = ? AND is_deleted = ?", tier, false)
	if tier == models.TierCold {
		q = q.Where("downloads >= ? AND last_download_at >= ?", downloadsAbove, lastDownloadBefore)
	} else {
		q = q.Where("last_access_at <= ?", lastDownloadBefore)
	}
	err := q.Order("last_access_at asc").Limit(limit).Find(&files).Error
	return files, err
}

// AggregateUserStorage sums size and counts a user's non-deleted files,
// used for quota reconciliation (syncFromFiles).
func (s *Store) AggregateUserStorage(ctx context.Context, userID string) (totalSize int64, fileCount int64, err error) {
	var row struct {
		TotalSize int64
		Count     int64
	}
	err = s.db.WithContext(ctx).Model(&models.File{}).
		Select("COALESCE(SUM(size), 0) as total_size, COUNT(*) as count").
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Scan(&row).Error
	return row.TotalSize, row.Count, err
}

func (s *Store) ListFilesByFolder(ctx context.Context, userID string, folderID *string, offset, limit int) ([]*models.File, error) {
	var files []*models.File
	q := s.db.WithContext(ctx).Where("user_id = ? AND is_deleted = ?", userID, false)
	if folderID == nil {
		q = q.Where("folder_id IS NULL")
	} else {
		q = q.Where("folder_id = ?", *folderID)
	}
	err := q.Offset(offset).Limit(limit).Find(&files).Error
	return files, err
}

func (s *Store) MoveFilesToFolder(ctx context.Context, fileIDs []string, folderID *string) error {
	return s.db.WithContext(ctx).Model(&models.File{}).
		Where("id IN ?", fileIDs).
		Update("folder_id", folderID).Error
}
