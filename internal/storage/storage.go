// Package storage is the StorageBackend: durable byte storage across a hot
// and a cold filesystem tier, plus a temp staging area for in-flight upload
// chunks. Layout mirrors the spec's on-disk scheme:
// <basePath>/<tier>/<first-2-of-key>/<storageKey>, with chunks staged at
// <basePath>/temp/<sessionId>/<chunkIndex>.
package storage

import (
	"os"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/config"
)

// Tier identifies which storage tier a blob lives in.
type Tier string

const (
	TierHot  Tier = "hot"
	TierCold Tier = "cold"
)

// Stats summarizes tier capacity and usage, mirroring StorageStats from the
// content layer this package is modeled on.
type Stats struct {
	TotalSize     uint64
	UsedSize      uint64
	AvailableSize uint64
	ObjectCount   uint64
}

// Backend is the filesystem-backed StorageBackend.
type Backend struct {
	hotPath  string
	coldPath string
	tempPath string
}

// Open roots a Backend at the paths given by cfg, creating any that are
// missing.
func Open(cfg config.StorageConfig) (*Backend, error) {
	b := &Backend{hotPath: cfg.HotPath, coldPath: cfg.ColdPath, tempPath: cfg.TempPath}
	for _, dir := range []string{b.hotPath, b.coldPath, b.tempPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, cerrors.Wrap(cerrors.CodeStorageError, "failed to create storage directory", err)
		}
	}
	return b, nil
}

func (b *Backend) tierRoot(tier Tier) string {
	if tier == TierCold {
		return b.coldPath
	}
	return b.hotPath
}

// HealthCheck verifies every tier root is accessible.
func (b *Backend) HealthCheck() error {
	for _, dir := range []string{b.hotPath, b.coldPath, b.tempPath} {
		if _, err := os.Stat(dir); err != nil {
			return cerrors.Wrap(cerrors.CodeStorageError, "storage path unavailable: "+dir, err)
		}
	}
	return nil
}
