// Package download is the DownloadEngine: resolves a file for reading,
// enforces AccessPolicy, honors Range requests, and streams bytes from the
// StorageBackend while recording usage asynchronously.
package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"time"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/events"
	"github.com/vaultfs/vaultfs/internal/logger"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/storage"
	"github.com/vaultfs/vaultfs/internal/tracing"
)

const metadataCacheTTL = 300 * time.Second

// metadataStore is the subset of internal/store.Store downloads need.
type metadataStore interface {
	GetFile(ctx context.Context, id string) (*models.File, error)
	UpdateFile(ctx context.Context, file *models.File) error
}

// accessPolicy is the subset of internal/access.Policy downloads need.
type accessPolicy interface {
	Check(ctx context.Context, file *models.File, userID, password string) error
}

// quotaAccountant is the subset of internal/quota.Accountant downloads need.
type quotaAccountant interface {
	AddBandwidth(ctx context.Context, userID string, bytes int64, now time.Time) error
}

// blockStore is the subset of internal/storage.Backend downloads need.
type blockStore interface {
	OpenRange(ctx context.Context, storageKey string, tier storage.Tier, start, end *int64) (io.ReadCloser, error)
}

// metadataCache is the subset of internal/volatile.Store used to cache file
// metadata lookups.
type metadataCache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Config tunes download-engine behavior.
type Config struct {
	ExtensionDays int
}

// Engine is the DownloadEngine.
type Engine struct {
	store  metadataStore
	access accessPolicy
	quota  quotaAccountant
	blocks blockStore
	cache  metadataCache
	sink   events.Sink
	cfg    Config
}

// New constructs an Engine from its dependencies. sink may be events.NopSink{}.
func New(store metadataStore, access accessPolicy, quota quotaAccountant, blocks blockStore, cache metadataCache, sink events.Sink, cfg Config) *Engine {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Engine{store: store, access: access, quota: quota, blocks: blocks, cache: cache, sink: sink, cfg: cfg}
}

// Result is the resolved, ready-to-stream download.
type Result struct {
	File         *models.File
	Body         io.ReadCloser
	StatusCode   int
	ContentType  string
	Disposition  string
	AcceptRange  bool
	CacheControl string
	ETag         string
	Length       int64
	Range        *ByteRange
	TotalSize    int64
}

// Prepare resolves fileID for reading by userID (empty if anonymous), honoring
// rangeHeader and password, and returns a streamable Result. Download
// counters and bandwidth accounting are updated asynchronously and never
// block or fail this call.
func (e *Engine) Prepare(ctx context.Context, fileID, userID, password, rangeHeader string, now time.Time) (prepared *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "download.Prepare")
	defer func() {
		tracing.RecordError(ctx, err)
		span.End()
	}()

	file, err := e.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.IsDeleted || file.IsExpired(now) {
		return nil, cerrors.New(cerrors.CodeNotFound, "file not found")
	}

	if err := e.access.Check(ctx, file, userID, password); err != nil {
		return nil, err
	}

	byteRange, ranged, err := ParseRange(rangeHeader, file.Size)
	if err != nil {
		return nil, err
	}

	var start, end *int64
	status := 200
	length := file.Size
	if ranged {
		s, en := byteRange.Start, byteRange.End
		start, end = &s, &en
		status = 206
		length = en - s + 1
	}

	body, err := e.blocks.OpenRange(ctx, file.StorageKey, storage.Tier(file.StorageTier), start, end)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.CodeStorageError, "failed to open file for reading", err)
	}

	result := &Result{
		File:         file,
		Body:         body,
		StatusCode:   status,
		ContentType:  resolveMimeType(file.MimeType, file.OriginalName),
		Disposition:  contentDisposition(file.OriginalName),
		AcceptRange:  true,
		CacheControl: "private, max-age=3600",
		ETag:         fmt.Sprintf(`"%s-%d"`, file.ID, file.Size),
		Length:       length,
		TotalSize:    file.Size,
	}
	if ranged {
		result.Range = &byteRange
	}

	e.recordAccess(file, userID, length, ranged, now)

	eventName := "download.served"
	if ranged {
		eventName = "download.range"
	}
	e.sink.Emit(ctx, events.Event{Name: eventName, At: now, UserID: userID, FileID: file.ID, Fields: map[string]any{"bytes": length}})

	return result, nil
}

func (e *Engine) loadFile(ctx context.Context, fileID string) (*models.File, error) {
	cacheKey := "file:" + fileID
	var cached models.File
	if err := e.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	file, err := e.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SetJSON(ctx, cacheKey, file, metadataCacheTTL); err != nil {
		logger.WarnCtx(ctx, "failed to populate file metadata cache", "file_id", fileID, "error", err)
	}
	return file, nil
}

// recordAccess fires the post-read side effects in background goroutines so
// the stream is never blocked on, or failed by, their outcome.
func (e *Engine) recordAccess(file *models.File, userID string, bytesServed int64, ranged bool, now time.Time) {
	if !ranged {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recording download access", "file_id", file.ID, "panic", r)
				}
			}()
			if err := e.touchFile(file, now); err != nil {
				logger.Error("failed to record download access", "file_id", file.ID, "error", err)
			}
		}()
	}

	if userID != "" {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recording download bandwidth", "user_id", userID, "panic", r)
				}
			}()
			if err := e.quota.AddBandwidth(context.Background(), userID, bytesServed, now); err != nil {
				logger.Error("failed to record download bandwidth", "user_id", userID, "error", err)
			}
		}()
	}
}

func (e *Engine) touchFile(file *models.File, now time.Time) error {
	ctx := context.Background()
	updated := *file
	updated.Downloads++
	updated.LastDownloadAt = &now
	updated.LastAccessAt = now
	if updated.ExpiresAt != nil {
		extended := now.AddDate(0, 0, e.cfg.ExtensionDays)
		if extended.After(*updated.ExpiresAt) {
			updated.ExpiresAt = &extended
		}
	}
	if err := e.store.UpdateFile(ctx, &updated); err != nil {
		return err
	}
	return e.cache.Delete(ctx, "file:"+file.ID)
}

func resolveMimeType(stored, filename string) string {
	if stored != "" {
		return stored
	}
	if t := mime.TypeByExtension(extOf(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func extOf(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i:]
		}
		if filename[i] == '/' {
			break
		}
	}
	return ""
}

func contentDisposition(originalName string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, url.QueryEscape(originalName))
}
