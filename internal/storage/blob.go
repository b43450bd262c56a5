package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

// OpenRange returns a bounded reader over storageKey's bytes in [start, end]
// (inclusive). A nil start/end pair streams the whole blob. The caller must
// close the returned reader.
func (b *Backend) OpenRange(ctx context.Context, storageKey string, tier Tier, start, end *int64) (io.ReadCloser, error) {
	path := b.blobPath(tier, storageKey)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cerrors.New(cerrors.CodeNotFound, "blob not found")
		}
		return nil, cerrors.Wrap(cerrors.CodeStorageError, "failed to open blob", err)
	}

	if start == nil && end == nil {
		return f, nil
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, cerrors.Wrap(cerrors.CodeStorageError, "failed to stat blob", err)
	}

	var from, to int64 = 0, info.Size() - 1
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	if from < 0 || to >= info.Size() || from > to {
		f.Close()
		return nil, cerrors.New(cerrors.CodeInvalidRange, "range not satisfiable")
	}
	if _, err := f.Seek(from, io.SeekStart); err != nil {
		f.Close()
		return nil, cerrors.Wrap(cerrors.CodeStorageError, "failed to seek blob", err)
	}

	return &limitedReadCloser{r: io.LimitReader(f, to-from+1), c: f}, nil
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error                { return l.c.Close() }

// Size returns storageKey's byte length within tier.
func (b *Backend) Size(ctx context.Context, storageKey string, tier Tier) (int64, error) {
	info, err := os.Stat(b.blobPath(tier, storageKey))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, cerrors.New(cerrors.CodeNotFound, "blob not found")
		}
		return 0, cerrors.Wrap(cerrors.CodeStorageError, "failed to stat blob", err)
	}
	return info.Size(), nil
}

// Exists reports whether storageKey is present within tier.
func (b *Backend) Exists(tier Tier, storageKey string) bool {
	_, err := os.Stat(b.blobPath(tier, storageKey))
	return err == nil
}

// Delete removes storageKey from tier. Idempotent.
func (b *Backend) Delete(ctx context.Context, storageKey string, tier Tier) error {
	path := b.blobPath(tier, storageKey)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return cerrors.Wrap(cerrors.CodeStorageError, "failed to delete blob", err)
	}
	cleanEmptyDirs(filepath.Dir(path), b.tierRoot(tier))
	return nil
}
