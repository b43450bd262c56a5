// Package foldertree is the FolderTree: hierarchical folder management
// with path/depth denormalization cascaded on move and rename, cycle
// detection, and recursive delete.
package foldertree

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/storage"
)

// metadataStore is the subset of internal/store.Store the tree needs.
type metadataStore interface {
	GetFolder(ctx context.Context, id string) (*models.Folder, error)
	GetFolderByPath(ctx context.Context, userID, path string) (*models.Folder, error)
	CreateFolder(ctx context.Context, folder *models.Folder) (string, error)
	UpdateFolderPath(ctx context.Context, id string, parentID *string, path string, depth int) error
	ListDescendants(ctx context.Context, userID, prefix string) ([]*models.Folder, error)
	RenamePathPrefix(ctx context.Context, userID, oldPrefix, newPrefix string) error
	ListChildFolders(ctx context.Context, userID string, parentID *string) ([]*models.Folder, error)
	DeleteFolder(ctx context.Context, id string) error
	AggregateFolderContents(ctx context.Context, folderID string) (totalSize int64, fileCount int64, err error)
	ListFilesByFolder(ctx context.Context, userID string, folderID *string, offset, limit int) ([]*models.File, error)
	MoveFilesToFolder(ctx context.Context, fileIDs []string, folderID *string) error
	SoftDeleteFile(ctx context.Context, id string, at time.Time) error
}

// blobDeleter is the subset of internal/storage.Backend a recursive delete
// needs to remove a file's blob ahead of soft-deleting its record.
type blobDeleter interface {
	Delete(ctx context.Context, storageKey string, tier storage.Tier) error
}

// quotaAccountant is the subset of internal/quota.Accountant a recursive
// delete needs to keep usage accurate.
type quotaAccountant interface {
	RemoveFile(ctx context.Context, userID string, size int64) error
}

// Tree is the FolderTree.
type Tree struct {
	store metadataStore
	blobs blobDeleter
	quota quotaAccountant
}

// New constructs a Tree backed by store, removing blobs via blobs and
// adjusting usage via quota as folders are recursively deleted.
func New(store metadataStore, blobs blobDeleter, quota quotaAccountant) *Tree {
	return &Tree{store: store, blobs: blobs, quota: quota}
}

// Create inserts a new folder under parentID (nil for root), sanitizing
// its name and computing its path/depth from the parent.
func (t *Tree) Create(ctx context.Context, userID, name string, parentID *string) (*models.Folder, error) {
	name = SanitizeName(name)
	if name == "" {
		return nil, cerrors.New(cerrors.CodeValidation, "folder name is empty after sanitization")
	}

	path := "/" + name
	depth := 0
	if parentID != nil {
		parent, err := t.store.GetFolder(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.UserID != userID {
			return nil, cerrors.New(cerrors.CodeAuthorization, "parent folder does not belong to user")
		}
		path = parent.Path + "/" + name
		depth = parent.Depth + 1
	}

	folder := &models.Folder{UserID: userID, Name: name, ParentID: parentID, Path: path, Depth: depth}
	id, err := t.store.CreateFolder(ctx, folder)
	if err != nil {
		return nil, err
	}
	folder.ID = id
	return folder, nil
}

// Rename changes folderID's name in place, cascading the path change to
// every descendant.
func (t *Tree) Rename(ctx context.Context, userID, folderID, newName string) (*models.Folder, error) {
	newName = SanitizeName(newName)
	if newName == "" {
		return nil, cerrors.New(cerrors.CodeValidation, "folder name is empty after sanitization")
	}

	folder, err := t.store.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.UserID != userID {
		return nil, cerrors.New(cerrors.CodeAuthorization, "folder does not belong to user")
	}

	parentPath := strings.TrimSuffix(folder.Path, "/"+folder.Name)
	newPath := parentPath + "/" + newName
	if newPath == folder.Path {
		return folder, nil
	}

	if err := t.store.UpdateFolderPath(ctx, folder.ID, folder.ParentID, newPath, folder.Depth); err != nil {
		return nil, err
	}
	if err := t.store.RenamePathPrefix(ctx, userID, folder.Path, newPath); err != nil {
		return nil, err
	}

	folder.Name = newName
	folder.Path = newPath
	return folder, nil
}

// Move relocates folderID under newParentID (nil for root), rejecting the
// move if newParentID is folderID itself or lies within folderID's own
// subtree.
func (t *Tree) Move(ctx context.Context, userID, folderID string, newParentID *string) (*models.Folder, error) {
	folder, err := t.store.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.UserID != userID {
		return nil, cerrors.New(cerrors.CodeAuthorization, "folder does not belong to user")
	}

	newPath := "/" + folder.Name
	newDepth := 0
	if newParentID != nil {
		if err := t.rejectCycle(ctx, userID, folder.ID, *newParentID); err != nil {
			return nil, err
		}
		newParent, err := t.store.GetFolder(ctx, *newParentID)
		if err != nil {
			return nil, err
		}
		if newParent.UserID != userID {
			return nil, cerrors.New(cerrors.CodeAuthorization, "target folder does not belong to user")
		}
		newPath = newParent.Path + "/" + folder.Name
		newDepth = newParent.Depth + 1
	}

	if err := t.store.UpdateFolderPath(ctx, folder.ID, newParentID, newPath, newDepth); err != nil {
		return nil, err
	}
	if err := t.store.RenamePathPrefix(ctx, userID, folder.Path, newPath); err != nil {
		return nil, err
	}

	folder.ParentID = newParentID
	folder.Path = newPath
	folder.Depth = newDepth
	return folder, nil
}

// rejectCycle walks from candidateParentID upward, forbidding the move if
// folderID is its own ancestor-to-be or the target itself.
func (t *Tree) rejectCycle(ctx context.Context, userID, folderID, candidateParentID string) error {
	if candidateParentID == folderID {
		return cerrors.New(cerrors.CodeValidation, "cannot move a folder into itself")
	}
	current := candidateParentID
	for {
		node, err := t.store.GetFolder(ctx, current)
		if err != nil {
			return err
		}
		if node.ID == folderID {
			return cerrors.New(cerrors.CodeValidation, "cannot move a folder into its own subtree")
		}
		if node.ParentID == nil {
			return nil
		}
		current = *node.ParentID
	}
}

// List returns the immediate child folders of parentID (nil for root).
func (t *Tree) List(ctx context.Context, userID string, parentID *string) ([]*models.Folder, error) {
	return t.store.ListChildFolders(ctx, userID, parentID)
}

// Contents returns the aggregate size/file-count of folderID's direct
// children files (computed on read, not denormalized).
func (t *Tree) Contents(ctx context.Context, folderID string) (totalSize int64, fileCount int64, err error) {
	return t.store.AggregateFolderContents(ctx, folderID)
}

// MoveFile reassigns a set of files to a different folder (nil for root).
func (t *Tree) MoveFile(ctx context.Context, fileIDs []string, folderID *string) error {
	return t.store.MoveFilesToFolder(ctx, fileIDs, folderID)
}

const deletePageSize = 100

// Delete recursively removes folderID and every descendant folder,
// deleting each contained file's blob and quota usage before soft-deleting
// its record, then removing the folder rows themselves depth-first (deepest
// first, so a failure partway through never orphans a file under an
// already-removed folder).
func (t *Tree) Delete(ctx context.Context, userID, folderID string) error {
	folder, err := t.store.GetFolder(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.UserID != userID {
		return cerrors.New(cerrors.CodeAuthorization, "folder does not belong to user")
	}

	descendants, err := t.store.ListDescendants(ctx, userID, folder.Path)
	if err != nil {
		return err
	}
	sort.Slice(descendants, func(i, j int) bool { return descendants[i].Depth < descendants[j].Depth })

	ids := make([]string, 0, len(descendants)+1)
	for _, d := range descendants {
		ids = append(ids, d.ID)
	}
	ids = append(ids, folder.ID)

	for _, id := range ids {
		if err := t.deleteFilesIn(ctx, userID, id); err != nil {
			return err
		}
	}

	// Deepest descendants first so no folder row is removed while a child
	// still references it.
	for i := len(descendants) - 1; i >= 0; i-- {
		if err := t.store.DeleteFolder(ctx, descendants[i].ID); err != nil {
			return err
		}
	}
	return t.store.DeleteFolder(ctx, folder.ID)
}

// deleteFilesIn removes every file directly contained in folderID: its blob,
// its quota usage, then its record, one page at a time.
func (t *Tree) deleteFilesIn(ctx context.Context, userID, folderID string) error {
	id := folderID
	now := time.Now()
	for {
		files, err := t.store.ListFilesByFolder(ctx, userID, &id, 0, deletePageSize)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		for _, f := range files {
			if err := t.blobs.Delete(ctx, f.StorageKey, storage.Tier(f.StorageTier)); err != nil {
				return err
			}
			if err := t.quota.RemoveFile(ctx, f.UserID, f.Size); err != nil {
				return err
			}
			if err := t.store.SoftDeleteFile(ctx, f.ID, now); err != nil {
				return err
			}
		}
		if len(files) < deletePageSize {
			return nil
		}
	}
}
