package storage

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

// Stats walks tier and reports its object count and used/available bytes.
func (b *Backend) Stats(ctx context.Context, tier Tier) (Stats, error) {
	root := b.tierRoot(tier)
	var used, count uint64

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		used += uint64(info.Size())
		count++
		return nil
	})
	if err != nil {
		return Stats{}, cerrors.Wrap(cerrors.CodeStorageError, "failed to walk storage tier", err)
	}

	total, available := diskCapacity(root)
	return Stats{
		TotalSize:     total,
		UsedSize:      used,
		AvailableSize: available,
		ObjectCount:   count,
	}, nil
}

func diskCapacity(path string) (total, available uint64) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0
	}
	total = stat.Blocks * uint64(stat.Bsize)
	available = stat.Bavail * uint64(stat.Bsize)
	return total, available
}
