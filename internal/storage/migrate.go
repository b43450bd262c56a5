package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

// Migrate moves storageKey from sourceTier to targetTier. When both tiers
// are rooted on the same filesystem, this is a rename; otherwise it streams
// a copy to the target and only unlinks the source once the target's
// existence is confirmed.
func (b *Backend) Migrate(ctx context.Context, storageKey string, sourceTier, targetTier Tier) error {
	srcPath := b.blobPath(sourceTier, storageKey)
	dstPath := b.blobPath(targetTier, storageKey)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "failed to create migration target dir", err)
	}

	if sameDevice(b.tierRoot(sourceTier), b.tierRoot(targetTier)) {
		if err := os.Rename(srcPath, dstPath); err != nil {
			return cerrors.Wrap(cerrors.CodeStorageError, "failed to migrate blob", err)
		}
		return nil
	}

	if err := streamCopy(srcPath, dstPath); err != nil {
		os.Remove(dstPath)
		return cerrors.Wrap(cerrors.CodeStorageError, "failed to migrate blob", err)
	}
	if _, err := os.Stat(dstPath); err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "migration target missing after copy", err)
	}
	if err := os.Remove(srcPath); err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "failed to remove migration source", err)
	}
	cleanEmptyDirs(filepath.Dir(srcPath), b.tierRoot(sourceTier))
	return nil
}

func streamCopy(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := dstPath + ".tmp"
	dst, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dstPath)
}

// sameDevice reports whether two paths live on the same filesystem device,
// so Migrate can pick rename (cheap) over stream-copy (safe across devices).
func sameDevice(a, b string) bool {
	devA, okA := deviceID(a)
	devB, okB := deviceID(b)
	return okA && okB && devA == devB
}

func deviceID(path string) (uint64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return uint64(stat.Dev), true
}
