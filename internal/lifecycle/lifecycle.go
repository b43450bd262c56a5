package lifecycle

import (
	"context"

	"github.com/vaultfs/vaultfs/internal/config"
	"github.com/vaultfs/vaultfs/internal/events"
)

// Workers bundles the three LifecycleWorkers so callers can start and stop
// them together.
type Workers struct {
	Expiry    *ExpiryWorker
	Migration *MigrationWorker
	Cleanup   *CleanupWorker
}

// New constructs the three LifecycleWorkers from cfg and their
// dependencies. sink may be events.NopSink{}.
func New(
	files expiryFileStore,
	migrationFiles migrationFileStore,
	sessions sessionStore,
	blobs interface {
		expiryBlobDeleter
		blobMigrator
		chunkStore
	},
	users migrationUserLookup,
	quota expiryQuotaAccountant,
	cache metadataCache,
	sink events.Sink,
	cfg config.LifecycleConfig,
) *Workers {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Workers{
		Expiry: NewExpiryWorker(files, blobs, quota, cache, sink, cfg.ExpirySweepInterval, cfg.BatchSize),
		Migration: NewMigrationWorker(migrationFiles, blobs, users, sink, cfg.MigrationSweepInterval, MigrationConfig{
			HotToColdAfter:     cfg.ColdMigrationThreshold,
			ColdToHotDownloads: cfg.HotPromotionDownloads,
			ColdToHotWithin:    cfg.HotPromotionWithin,
			BatchSize:          cfg.BatchSize,
		}),
		Cleanup: NewCleanupWorker(sessions, blobs, sink, cfg.CleanupSweepInterval, CleanupConfig{
			BatchSize:          cfg.BatchSize,
			OrphanChunkMaxAge:  cfg.OrphanChunkMaxAge,
			TerminalSessionTTL: cfg.TerminalSessionTTL,
		}),
	}
}

// Start launches all three workers.
func (w *Workers) Start(ctx context.Context) {
	w.Expiry.Start(ctx)
	w.Migration.Start(ctx)
	w.Cleanup.Start(ctx)
}

// Stop gracefully stops all three workers, waiting for each to finish its
// current tick.
func (w *Workers) Stop() {
	w.Expiry.Stop()
	w.Migration.Stop()
	w.Cleanup.Stop()
}
