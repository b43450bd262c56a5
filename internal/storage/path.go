package storage

import (
	"os"
	"path/filepath"
	"strconv"
)

// blobPath returns the full path for storageKey within tier, sharded by its
// first two characters to avoid one directory holding every blob.
func (b *Backend) blobPath(tier Tier, storageKey string) string {
	shard := storageKey
	if len(shard) > 2 {
		shard = storageKey[:2]
	}
	return filepath.Join(b.tierRoot(tier), shard, storageKey)
}

func (b *Backend) sessionTempDir(sessionID string) string {
	return filepath.Join(b.tempPath, sessionID)
}

func (b *Backend) chunkPath(sessionID string, chunkIndex int) string {
	return filepath.Join(b.sessionTempDir(sessionID), strconv.Itoa(chunkIndex))
}

// cleanEmptyDirs removes dir and its ancestors up to (not including) root
// while they remain empty.
func cleanEmptyDirs(dir, root string) {
	for dir != root && len(dir) > len(root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
