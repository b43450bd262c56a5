package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

// AssembleResult reports the outcome of assembling a chunk set into a blob.
type AssembleResult struct {
	Size int64
	Hash string
}

// WriteChunk stages one chunk of an in-progress upload, written atomically
// (temp file then rename) so a crash mid-write never leaves a partial chunk
// visible under its final name.
func (b *Backend) WriteChunk(ctx context.Context, sessionID string, chunkIndex int, data []byte) error {
	dir := b.sessionTempDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "failed to create chunk staging dir", err)
	}
	path := b.chunkPath(sessionID, chunkIndex)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "failed to stage chunk", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return cerrors.Wrap(cerrors.CodeStorageError, "failed to finalize chunk", err)
	}
	return nil
}

// AssembleChunks streams the totalChunks chunks staged for sessionID, in
// index order, into a single blob at storageKey within tier, computing its
// SHA-256 as it writes. On any failure the partial destination is removed
// before the error is returned.
func (b *Backend) AssembleChunks(ctx context.Context, sessionID, storageKey string, totalChunks int, tier Tier) (AssembleResult, error) {
	destPath := b.blobPath(tier, storageKey)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return AssembleResult{}, cerrors.Wrap(cerrors.CodeStorageError, "failed to create blob dir", err)
	}

	tmp := destPath + ".tmp"
	dest, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return AssembleResult{}, cerrors.Wrap(cerrors.CodeStorageError, "failed to open assembly target", err)
	}

	hasher := sha256.New()
	var size int64
	assembleErr := func() error {
		defer dest.Close()
		for i := 0; i < totalChunks; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunkPath := b.chunkPath(sessionID, i)
			n, err := copyChunk(dest, hasher, chunkPath)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			size += n
		}
		return nil
	}()
	if assembleErr != nil {
		os.Remove(tmp)
		return AssembleResult{}, cerrors.Wrap(cerrors.CodeStorageError, "failed to assemble chunks", assembleErr)
	}

	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return AssembleResult{}, cerrors.Wrap(cerrors.CodeStorageError, "failed to finalize blob", err)
	}

	return AssembleResult{Size: size, Hash: fmt.Sprintf("%x", hasher.Sum(nil))}, nil
}

func copyChunk(dest io.Writer, hasher io.Writer, chunkPath string) (int64, error) {
	f, err := os.Open(chunkPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(io.MultiWriter(dest, hasher), f)
}

// DeleteChunks removes every staged chunk for sessionID. Idempotent.
func (b *Backend) DeleteChunks(ctx context.Context, sessionID string) error {
	dir := b.sessionTempDir(sessionID)
	if err := os.RemoveAll(dir); err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "failed to clean up chunk staging", err)
	}
	cleanEmptyDirs(filepath.Dir(dir), b.tempPath)
	return nil
}

// StaleChunkSessions returns the session IDs of temp staging directories
// whose most recent chunk write is older than cutoff, for the lifecycle
// cleanup worker to sweep abandoned uploads that never reached Complete or
// Abort.
func (b *Backend) StaleChunkSessions(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(b.tempPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cerrors.Wrap(cerrors.CodeStorageError, "failed to scan chunk staging area", err)
	}

	var stale []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, e.Name())
		}
	}
	return stale, nil
}

// listChunkIndices returns the indices of chunks currently staged for
// sessionID, in ascending order.
func (b *Backend) listChunkIndices(sessionID string) ([]int, error) {
	dir := b.sessionTempDir(sessionID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	indices := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		idx, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}
