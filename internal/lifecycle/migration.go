package lifecycle

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vaultfs/vaultfs/internal/events"
	"github.com/vaultfs/vaultfs/internal/logger"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/storage"
	"github.com/vaultfs/vaultfs/internal/tracing"
)

// migrationFanOut bounds how many blob migrations a single sweep runs
// concurrently, so one pass can't saturate the storage backend.
const migrationFanOut = 8

// migrationFileStore is the subset of internal/store.Store the migration
// worker needs.
type migrationFileStore interface {
	ListMigrationCandidates(ctx context.Context, tier models.StorageTier, threshold int64, cutoff time.Time, limit int) ([]*models.File, error)
	UpdateFile(ctx context.Context, file *models.File) error
}

// blobMigrator is the subset of internal/storage.Backend the migration
// worker needs.
type blobMigrator interface {
	Migrate(ctx context.Context, storageKey string, sourceTier, targetTier storage.Tier) error
}

// migrationUserLookup is used to exempt premium/admin users' files from the
// hot->cold demotion pass.
type migrationUserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// MigrationConfig tunes which files are eligible for each migration pass.
type MigrationConfig struct {
	HotToColdAfter     time.Duration
	ColdToHotDownloads int64
	ColdToHotWithin    time.Duration
	BatchSize          int
}

// MigrationWorker moves files between the hot and cold storage tiers based
// on access recency and download popularity.
type MigrationWorker struct {
	*worker
	store migrationFileStore
	blobs blobMigrator
	users migrationUserLookup
	sink  events.Sink
	cfg   MigrationConfig
	now   func() time.Time
}

// NewMigrationWorker constructs a MigrationWorker ticking every interval.
// sink may be events.NopSink{}.
func NewMigrationWorker(store migrationFileStore, blobs blobMigrator, users migrationUserLookup, sink events.Sink, interval time.Duration, cfg MigrationConfig) *MigrationWorker {
	if sink == nil {
		sink = events.NopSink{}
	}
	w := &MigrationWorker{store: store, blobs: blobs, users: users, sink: sink, cfg: cfg, now: time.Now}
	w.worker = newWorker("migration", interval, w.sweep)
	return w
}

func (w *MigrationWorker) sweep(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.MigrationWorker.sweep")
	defer span.End()

	now := w.now()
	w.migrateColdCandidates(ctx, now)
	w.migrateHotCandidates(ctx, now)
}

func (w *MigrationWorker) migrateColdCandidates(ctx context.Context, now time.Time) {
	cutoff := now.Add(-w.cfg.HotToColdAfter)
	files, err := w.store.ListMigrationCandidates(ctx, models.TierHot, 0, cutoff, w.cfg.BatchSize)
	if err != nil {
		logger.ErrorCtx(ctx, "migration worker: failed to list hot->cold candidates", "error", err)
		return
	}

	var moved, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(migrationFanOut)
	for _, f := range files {
		f := f
		if f.MigrationStatus == models.MigrationPending || f.MigrationStatus == models.MigrationInProgress {
			continue
		}
		g.Go(func() error {
			exempt, err := w.isPremiumOrAdmin(gctx, f.UserID)
			if err != nil {
				logger.ErrorCtx(gctx, "migration worker: failed to resolve owner role", "file_id", f.ID, "error", err)
				return nil
			}
			if exempt {
				return nil
			}
			if err := w.migrateOne(gctx, f, storage.TierHot, storage.TierCold, models.TierCold, "hot_to_cold", now); err != nil {
				failed.Add(1)
				logger.ErrorCtx(gctx, "migration worker: hot->cold migration failed", "file_id", f.ID, "error", err)
				return nil
			}
			moved.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	if moved.Load() > 0 || failed.Load() > 0 {
		logger.InfoCtx(ctx, "migration worker: hot->cold pass complete", "moved", moved.Load(), "failed", failed.Load())
		w.sink.Emit(ctx, events.Event{Name: "lifecycle.swept", At: now, Fields: map[string]any{"worker": "migration", "processed": int(moved.Load())}})
	}
}

func (w *MigrationWorker) isPremiumOrAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := w.users.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Role == models.RolePremium || user.Role == models.RoleAdmin, nil
}

func (w *MigrationWorker) migrateHotCandidates(ctx context.Context, now time.Time) {
	cutoff := now.Add(-w.cfg.ColdToHotWithin)
	files, err := w.store.ListMigrationCandidates(ctx, models.TierCold, w.cfg.ColdToHotDownloads, cutoff, w.cfg.BatchSize)
	if err != nil {
		logger.ErrorCtx(ctx, "migration worker: failed to list cold->hot candidates", "error", err)
		return
	}

	var moved, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(migrationFanOut)
	for _, f := range files {
		f := f
		if f.MigrationStatus == models.MigrationPending || f.MigrationStatus == models.MigrationInProgress {
			continue
		}
		g.Go(func() error {
			if err := w.migrateOne(gctx, f, storage.TierCold, storage.TierHot, models.TierHot, "cold_to_hot", now); err != nil {
				failed.Add(1)
				logger.ErrorCtx(gctx, "migration worker: cold->hot migration failed", "file_id", f.ID, "error", err)
				return nil
			}
			moved.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	if moved.Load() > 0 || failed.Load() > 0 {
		logger.InfoCtx(ctx, "migration worker: cold->hot pass complete", "moved", moved.Load(), "failed", failed.Load())
		w.sink.Emit(ctx, events.Event{Name: "lifecycle.swept", At: now, Fields: map[string]any{"worker": "migration", "processed": int(moved.Load())}})
	}
}

func (w *MigrationWorker) migrateOne(ctx context.Context, f *models.File, from, to storage.Tier, toModel models.StorageTier, direction string, now time.Time) error {
	pending := *f
	pending.MigrationStatus = models.MigrationPending
	if err := w.store.UpdateFile(ctx, &pending); err != nil {
		return err
	}

	inProgress := pending
	inProgress.MigrationStatus = models.MigrationInProgress
	if err := w.store.UpdateFile(ctx, &inProgress); err != nil {
		return err
	}

	if err := w.blobs.Migrate(ctx, f.StorageKey, from, to); err != nil {
		failedUpdate := inProgress
		failedUpdate.MigrationStatus = models.MigrationFailed
		if uerr := w.store.UpdateFile(ctx, &failedUpdate); uerr != nil {
			logger.ErrorCtx(ctx, "migration worker: failed to record migration failure", "file_id", f.ID, "error", uerr)
		}
		return err
	}

	done := inProgress
	done.StorageTier = toModel
	done.MigrationStatus = models.MigrationCompleted
	done.LastMigrationAt = &now
	if err := w.store.UpdateFile(ctx, &done); err != nil {
		return err
	}
	w.sink.Emit(ctx, events.Event{Name: "file.migrated", At: now, FileID: f.ID, UserID: f.UserID, Fields: map[string]any{"direction": direction}})
	return nil
}
