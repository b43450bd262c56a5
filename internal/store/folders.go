package store

import (
	"context"
	"strings"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
)

func (s *Store) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	return getByField[models.Folder](s.db, ctx, "id", id, "folder not found")
}

func (s *Store) GetFolderByPath(ctx context.Context, userID, path string) (*models.Folder, error) {
	var folder models.Folder
	err := s.db.WithContext(ctx).Where("user_id = ? AND path = ?", userID, path).First(&folder).Error
	if err != nil {
		return nil, convertNotFound(err, "folder not found")
	}
	return &folder, nil
}

func (s *Store) CreateFolder(ctx context.Context, folder *models.Folder) (string, error) {
	return createWithID(s.db, ctx, folder, func(f *models.Folder, id string) { f.ID = id }, folder.ID, "a folder with that name already exists here")
}

// UpdateFolderPath updates a single folder's denormalized path/depth, used
// by FolderTree when renaming/moving the folder itself.
func (s *Store) UpdateFolderPath(ctx context.Context, id string, parentID *string, path string, depth int) error {
	result := s.db.WithContext(ctx).Model(&models.Folder{}).Where("id = ?", id).
		Updates(map[string]any{"parent_id": parentID, "path": path, "depth": depth})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cerrors.New(cerrors.CodeNotFound, "folder not found")
	}
	return nil
}

// ListDescendants returns every folder under prefix (inclusive of any
// folder whose path starts with prefix+"/"), for cascading path updates.
func (s *Store) ListDescendants(ctx context.Context, userID, prefix string) ([]*models.Folder, error) {
	var folders []*models.Folder
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND path LIKE ?", userID, prefix+"/%").
		Find(&folders).Error
	return folders, err
}

// RenamePathPrefix rewrites oldPrefix -> newPrefix on every folder whose
// path starts with oldPrefix+"/", in one pass, recomputing depth from the
// new path's slash count.
func (s *Store) RenamePathPrefix(ctx context.Context, userID, oldPrefix, newPrefix string) error {
	descendants, err := s.ListDescendants(ctx, userID, oldPrefix)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		newPath := newPrefix + strings.TrimPrefix(d.Path, oldPrefix)
		depth := strings.Count(newPath, "/") - 1
		if err := s.UpdateFolderPath(ctx, d.ID, d.ParentID, newPath, depth); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListChildFolders(ctx context.Context, userID string, parentID *string) ([]*models.Folder, error) {
	var folders []*models.Folder
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	err := q.Order("name asc").Find(&folders).Error
	return folders, err
}

func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Folder{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cerrors.New(cerrors.CodeNotFound, "folder not found")
	}
	return nil
}

// AggregateFolderContents sums size over non-deleted files directly inside
// folderID, for on-read rollup counts (no denormalized counters kept).
func (s *Store) AggregateFolderContents(ctx context.Context, folderID string) (totalSize int64, fileCount int64, err error) {
	var row struct {
		TotalSize int64
		Count     int64
	}
	err = s.db.WithContext(ctx).Model(&models.File{}).
		Select("COALESCE(SUM(size), 0) as total_size, COUNT(*) as count").
		Where("folder_id = ? AND is_deleted = ?", folderID, false).
		Scan(&row).Error
	return row.TotalSize, row.Count, err
}
