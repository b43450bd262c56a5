package lifecycle

import (
	"context"
	"time"

	"github.com/vaultfs/vaultfs/internal/events"
	"github.com/vaultfs/vaultfs/internal/logger"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/storage"
	"github.com/vaultfs/vaultfs/internal/tracing"
)

// expiryFileStore is the subset of internal/store.Store the expiry worker
// needs.
type expiryFileStore interface {
	ListExpiredFiles(ctx context.Context, now time.Time, limit int) ([]*models.File, error)
	SoftDeleteFile(ctx context.Context, id string, at time.Time) error
}

// expiryBlobDeleter is the subset of internal/storage.Backend the expiry
// worker needs.
type expiryBlobDeleter interface {
	Delete(ctx context.Context, storageKey string, tier storage.Tier) error
}

// expiryQuotaAccountant is the subset of internal/quota.Accountant the
// expiry worker needs.
type expiryQuotaAccountant interface {
	RemoveFile(ctx context.Context, userID string, size int64) error
}

// metadataCache is the subset of internal/volatile.Store used to evict a
// file's cached metadata once it is gone.
type metadataCache interface {
	Delete(ctx context.Context, key string) error
}

// ExpiryWorker soft-deletes files whose expiresAt has passed, freeing their
// blob and quota accounting.
type ExpiryWorker struct {
	*worker
	store     expiryFileStore
	blobs     expiryBlobDeleter
	quota     expiryQuotaAccountant
	cache     metadataCache
	sink      events.Sink
	batchSize int
	now       func() time.Time
}

// NewExpiryWorker constructs an ExpiryWorker ticking every interval and
// processing up to batchSize files per pass. sink may be events.NopSink{}.
func NewExpiryWorker(store expiryFileStore, blobs expiryBlobDeleter, quota expiryQuotaAccountant, cache metadataCache, sink events.Sink, interval time.Duration, batchSize int) *ExpiryWorker {
	if sink == nil {
		sink = events.NopSink{}
	}
	w := &ExpiryWorker{store: store, blobs: blobs, quota: quota, cache: cache, sink: sink, batchSize: batchSize, now: time.Now}
	w.worker = newWorker("expiry", interval, w.sweep)
	return w
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.ExpiryWorker.sweep")
	defer span.End()

	now := w.now()
	files, err := w.store.ListExpiredFiles(ctx, now, w.batchSize)
	if err != nil {
		logger.ErrorCtx(ctx, "expiry worker: failed to list expired files", "error", err)
		return
	}
	if len(files) == 0 {
		return
	}

	var removed, failed int
	for _, f := range files {
		if err := w.expireOne(ctx, f, now); err != nil {
			failed++
			logger.ErrorCtx(ctx, "expiry worker: failed to expire file", "file_id", f.ID, "error", err)
			continue
		}
		removed++
	}
	logger.InfoCtx(ctx, "expiry worker: sweep complete", "removed", removed, "failed", failed)
	w.sink.Emit(ctx, events.Event{Name: "lifecycle.swept", At: now, Fields: map[string]any{"worker": "expiry", "processed": removed}})
}

func (w *ExpiryWorker) expireOne(ctx context.Context, f *models.File, now time.Time) error {
	if err := w.blobs.Delete(ctx, f.StorageKey, storage.Tier(f.StorageTier)); err != nil {
		return err
	}
	if err := w.store.SoftDeleteFile(ctx, f.ID, now); err != nil {
		return err
	}
	if err := w.quota.RemoveFile(ctx, f.UserID, f.Size); err != nil {
		logger.ErrorCtx(ctx, "expiry worker: quota reconciliation failed", "file_id", f.ID, "error", err)
	}
	if err := w.cache.Delete(ctx, "file:"+f.ID); err != nil {
		logger.ErrorCtx(ctx, "expiry worker: cache invalidation failed", "file_id", f.ID, "error", err)
	}
	return nil
}
