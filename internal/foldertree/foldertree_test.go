package foldertree

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/storage"
)

type fakeStore struct {
	folders map[string]*models.Folder
	files   map[string]*models.File
	seq     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{folders: map[string]*models.Folder{}, files: map[string]*models.File{}}
}

func (s *fakeStore) GetFolder(_ context.Context, id string) (*models.Folder, error) {
	f, ok := s.folders[id]
	if !ok {
		return nil, cerrors.New(cerrors.CodeNotFound, "folder not found")
	}
	cp := *f
	return &cp, nil
}

func (s *fakeStore) GetFolderByPath(_ context.Context, userID, path string) (*models.Folder, error) {
	for _, f := range s.folders {
		if f.UserID == userID && f.Path == path {
			cp := *f
			return &cp, nil
		}
	}
	return nil, cerrors.New(cerrors.CodeNotFound, "folder not found")
}

func (s *fakeStore) CreateFolder(_ context.Context, folder *models.Folder) (string, error) {
	s.seq++
	id := fmt.Sprintf("folder-%d", s.seq)
	cp := *folder
	cp.ID = id
	s.folders[id] = &cp
	return id, nil
}

func (s *fakeStore) UpdateFolderPath(_ context.Context, id string, parentID *string, path string, depth int) error {
	f, ok := s.folders[id]
	if !ok {
		return cerrors.New(cerrors.CodeNotFound, "folder not found")
	}
	f.ParentID = parentID
	f.Path = path
	f.Depth = depth
	return nil
}

func (s *fakeStore) ListDescendants(_ context.Context, userID, prefix string) ([]*models.Folder, error) {
	var out []*models.Folder
	want := prefix + "/"
	for _, f := range s.folders {
		if f.UserID == userID && len(f.Path) > len(want) && f.Path[:len(want)] == want {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) RenamePathPrefix(_ context.Context, userID, oldPrefix, newPrefix string) error {
	for _, f := range s.folders {
		want := oldPrefix + "/"
		if f.UserID == userID && len(f.Path) > len(want) && f.Path[:len(want)] == want {
			f.Path = newPrefix + f.Path[len(oldPrefix):]
		}
	}
	return nil
}

func (s *fakeStore) ListChildFolders(_ context.Context, userID string, parentID *string) ([]*models.Folder, error) {
	var out []*models.Folder
	for _, f := range s.folders {
		if f.UserID != userID {
			continue
		}
		if (parentID == nil) != (f.ParentID == nil) {
			continue
		}
		if parentID != nil && f.ParentID != nil && *parentID != *f.ParentID {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) DeleteFolder(_ context.Context, id string) error {
	if _, ok := s.folders[id]; !ok {
		return cerrors.New(cerrors.CodeNotFound, "folder not found")
	}
	delete(s.folders, id)
	return nil
}

func (s *fakeStore) AggregateFolderContents(_ context.Context, folderID string) (int64, int64, error) {
	var size, count int64
	for _, f := range s.files {
		if !f.IsDeleted && f.FolderID != nil && *f.FolderID == folderID {
			size += f.Size
			count++
		}
	}
	return size, count, nil
}

func (s *fakeStore) ListFilesByFolder(_ context.Context, userID string, folderID *string, offset, limit int) ([]*models.File, error) {
	var out []*models.File
	for _, f := range s.files {
		if f.UserID != userID || f.IsDeleted {
			continue
		}
		if (folderID == nil) != (f.FolderID == nil) {
			continue
		}
		if folderID != nil && f.FolderID != nil && *folderID != *f.FolderID {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (s *fakeStore) MoveFilesToFolder(_ context.Context, fileIDs []string, folderID *string) error {
	for _, id := range fileIDs {
		if f, ok := s.files[id]; ok {
			f.FolderID = folderID
		}
	}
	return nil
}

func (s *fakeStore) SoftDeleteFile(_ context.Context, id string, at time.Time) error {
	f, ok := s.files[id]
	if !ok {
		return cerrors.New(cerrors.CodeNotFound, "file not found")
	}
	f.IsDeleted = true
	f.DeletedAt = &at
	return nil
}

type fakeBlobs struct {
	deleted []string
}

func (b *fakeBlobs) Delete(_ context.Context, storageKey string, _ storage.Tier) error {
	b.deleted = append(b.deleted, storageKey)
	return nil
}

type fakeQuota struct {
	removed int64
}

func (q *fakeQuota) RemoveFile(_ context.Context, _ string, size int64) error {
	q.removed += size
	return nil
}

func newTestTree() (*Tree, *fakeStore, *fakeBlobs, *fakeQuota) {
	store := newFakeStore()
	blobs := &fakeBlobs{}
	quota := &fakeQuota{}
	return New(store, blobs, quota), store, blobs, quota
}

func TestCreateComputesPathAndDepthFromParent(t *testing.T) {
	tree, _, _, _ := newTestTree()
	ctx := context.Background()

	root, err := tree.Create(ctx, "u1", "Documents", nil)
	require.NoError(t, err)
	assert.Equal(t, "/Documents", root.Path)
	assert.Equal(t, 0, root.Depth)

	child, err := tree.Create(ctx, "u1", "Invoices", &root.ID)
	require.NoError(t, err)
	assert.Equal(t, "/Documents/Invoices", child.Path)
	assert.Equal(t, 1, child.Depth)
}

func TestCreateSanitizesName(t *testing.T) {
	tree, _, _, _ := newTestTree()
	folder, err := tree.Create(context.Background(), "u1", "a/b:c", nil)
	require.NoError(t, err)
	assert.Equal(t, "a_b_c", folder.Name)
}

func TestRenameCascadesPathToDescendants(t *testing.T) {
	tree, _, _, _ := newTestTree()
	ctx := context.Background()

	root, _ := tree.Create(ctx, "u1", "Documents", nil)
	child, _ := tree.Create(ctx, "u1", "Invoices", &root.ID)

	_, err := tree.Rename(ctx, "u1", root.ID, "Papers")
	require.NoError(t, err)

	got, err := tree.store.GetFolder(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "/Papers/Invoices", got.Path)
}

func TestMoveRejectsCycleIntoOwnSubtree(t *testing.T) {
	tree, _, _, _ := newTestTree()
	ctx := context.Background()

	root, _ := tree.Create(ctx, "u1", "Documents", nil)
	child, _ := tree.Create(ctx, "u1", "Invoices", &root.ID)

	_, err := tree.Move(ctx, "u1", root.ID, &child.ID)
	require.Error(t, err)
	assert.Equal(t, cerrors.CodeValidation, cerrors.CodeOf(err))
}

func TestMoveRejectsSelfAsTarget(t *testing.T) {
	tree, _, _, _ := newTestTree()
	ctx := context.Background()

	root, _ := tree.Create(ctx, "u1", "Documents", nil)

	_, err := tree.Move(ctx, "u1", root.ID, &root.ID)
	require.Error(t, err)
	assert.Equal(t, cerrors.CodeValidation, cerrors.CodeOf(err))
}

func TestMoveRecomputesPathAndDepth(t *testing.T) {
	tree, _, _, _ := newTestTree()
	ctx := context.Background()

	a, _ := tree.Create(ctx, "u1", "A", nil)
	b, _ := tree.Create(ctx, "u1", "B", nil)
	child, _ := tree.Create(ctx, "u1", "Child", &a.ID)

	moved, err := tree.Move(ctx, "u1", child.ID, &b.ID)
	require.NoError(t, err)
	assert.Equal(t, "/B/Child", moved.Path)
	assert.Equal(t, 1, moved.Depth)
}

func TestDeleteRemovesDescendantsFilesAndAdjustsQuota(t *testing.T) {
	tree, store, blobs, quota := newTestTree()
	ctx := context.Background()

	root, _ := tree.Create(ctx, "u1", "Documents", nil)
	child, _ := tree.Create(ctx, "u1", "Invoices", &root.ID)

	store.files["f1"] = &models.File{ID: "f1", UserID: "u1", FolderID: &root.ID, StorageKey: "k1", Size: 100, StorageTier: models.TierHot}
	store.files["f2"] = &models.File{ID: "f2", UserID: "u1", FolderID: &child.ID, StorageKey: "k2", Size: 200, StorageTier: models.TierCold}

	require.NoError(t, tree.Delete(ctx, "u1", root.ID))

	assert.ElementsMatch(t, []string{"k1", "k2"}, blobs.deleted)
	assert.Equal(t, int64(300), quota.removed)
	assert.True(t, store.files["f1"].IsDeleted)
	assert.True(t, store.files["f2"].IsDeleted)
	assert.NotContains(t, store.folders, root.ID)
	assert.NotContains(t, store.folders, child.ID)
}

func TestDeleteRejectsOtherUsersFolder(t *testing.T) {
	tree, _, _, _ := newTestTree()
	ctx := context.Background()

	root, _ := tree.Create(ctx, "u1", "Documents", nil)

	err := tree.Delete(ctx, "u2", root.ID)
	require.Error(t, err)
	assert.Equal(t, cerrors.CodeAuthorization, cerrors.CodeOf(err))
}

func TestListReturnsOnlyDirectChildren(t *testing.T) {
	tree, _, _, _ := newTestTree()
	ctx := context.Background()

	root, _ := tree.Create(ctx, "u1", "Documents", nil)
	_, _ = tree.Create(ctx, "u1", "Invoices", &root.ID)
	_, _ = tree.Create(ctx, "u1", "Receipts", &root.ID)

	children, err := tree.List(ctx, "u1", &root.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2)
}
