package lifecycle

import (
	"context"
	"time"

	"github.com/vaultfs/vaultfs/internal/events"
	"github.com/vaultfs/vaultfs/internal/logger"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/tracing"
)

// sessionStore is the subset of internal/store.Store the cleanup worker
// needs.
type sessionStore interface {
	ListStaleActiveSessions(ctx context.Context, now time.Time, limit int) ([]*models.UploadSession, error)
	UpdateUploadSession(ctx context.Context, session *models.UploadSession) error
	GetUploadSession(ctx context.Context, sessionID string) (*models.UploadSession, error)
	PurgeTerminalSessions(ctx context.Context, now time.Time, minAge time.Duration) (int64, error)
}

// chunkStore is the subset of internal/storage.Backend the cleanup worker
// needs.
type chunkStore interface {
	DeleteChunks(ctx context.Context, sessionID string) error
	StaleChunkSessions(cutoff time.Time) ([]string, error)
}

// CleanupConfig tunes the cleanup worker's three sweeps.
type CleanupConfig struct {
	BatchSize          int
	OrphanChunkMaxAge  time.Duration
	TerminalSessionTTL time.Duration
}

// CleanupWorker sweeps expired live upload sessions, orphaned chunk staging
// directories, and old terminal session rows.
type CleanupWorker struct {
	*worker
	sessions sessionStore
	chunks   chunkStore
	sink     events.Sink
	cfg      CleanupConfig
	now      func() time.Time
}

// NewCleanupWorker constructs a CleanupWorker ticking every interval. sink
// may be events.NopSink{}.
func NewCleanupWorker(sessions sessionStore, chunks chunkStore, sink events.Sink, interval time.Duration, cfg CleanupConfig) *CleanupWorker {
	if sink == nil {
		sink = events.NopSink{}
	}
	w := &CleanupWorker{sessions: sessions, chunks: chunks, sink: sink, cfg: cfg, now: time.Now}
	w.worker = newWorker("cleanup", interval, w.sweep)
	return w
}

func (w *CleanupWorker) sweep(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.CleanupWorker.sweep")
	defer span.End()

	now := w.now()
	w.expireStaleSessions(ctx, now)
	w.sweepOrphanChunks(ctx, now)
	w.purgeTerminalSessions(ctx, now)
}

func (w *CleanupWorker) expireStaleSessions(ctx context.Context, now time.Time) {
	sessions, err := w.sessions.ListStaleActiveSessions(ctx, now, w.cfg.BatchSize)
	if err != nil {
		logger.ErrorCtx(ctx, "cleanup worker: failed to list stale active sessions", "error", err)
		return
	}

	var expired, failed int
	for _, sess := range sessions {
		if err := w.chunks.DeleteChunks(ctx, sess.SessionID); err != nil {
			failed++
			logger.ErrorCtx(ctx, "cleanup worker: failed to delete chunks for stale session", "session_id", sess.SessionID, "error", err)
			continue
		}
		sess.Status = models.SessionExpired
		sess.LastActivityAt = now
		if err := w.sessions.UpdateUploadSession(ctx, sess); err != nil {
			failed++
			logger.ErrorCtx(ctx, "cleanup worker: failed to mark session expired", "session_id", sess.SessionID, "error", err)
			continue
		}
		expired++
	}
	if expired > 0 || failed > 0 {
		logger.InfoCtx(ctx, "cleanup worker: expired stale sessions", "expired", expired, "failed", failed)
		w.sink.Emit(ctx, events.Event{Name: "lifecycle.swept", At: now, Fields: map[string]any{"worker": "cleanup.sessions", "processed": expired}})
	}
}

func (w *CleanupWorker) sweepOrphanChunks(ctx context.Context, now time.Time) {
	cutoff := now.Add(-w.cfg.OrphanChunkMaxAge)
	candidates, err := w.chunks.StaleChunkSessions(cutoff)
	if err != nil {
		logger.ErrorCtx(ctx, "cleanup worker: failed to scan chunk staging area", "error", err)
		return
	}

	var swept, failed int
	for _, sessionID := range candidates {
		if w.sessionIsLive(ctx, sessionID) {
			continue
		}
		if err := w.chunks.DeleteChunks(ctx, sessionID); err != nil {
			failed++
			logger.ErrorCtx(ctx, "cleanup worker: failed to delete orphan chunks", "session_id", sessionID, "error", err)
			continue
		}
		swept++
	}
	if swept > 0 || failed > 0 {
		logger.InfoCtx(ctx, "cleanup worker: swept orphan chunk directories", "swept", swept, "failed", failed)
		w.sink.Emit(ctx, events.Event{Name: "lifecycle.swept", At: now, Fields: map[string]any{"worker": "cleanup.chunks", "processed": swept}})
	}
}

// sessionIsLive reports whether sessionID still denotes an in-progress
// session, so its chunk directory is not mistaken for an orphan while the
// upload is still within its active window.
func (w *CleanupWorker) sessionIsLive(ctx context.Context, sessionID string) bool {
	sess, err := w.sessions.GetUploadSession(ctx, sessionID)
	if err != nil {
		return false
	}
	switch sess.Status {
	case models.SessionPending, models.SessionUploading, models.SessionAssembling:
		return true
	default:
		return false
	}
}

func (w *CleanupWorker) purgeTerminalSessions(ctx context.Context, now time.Time) {
	removed, err := w.sessions.PurgeTerminalSessions(ctx, now, w.cfg.TerminalSessionTTL)
	if err != nil {
		logger.ErrorCtx(ctx, "cleanup worker: failed to purge terminal sessions", "error", err)
		return
	}
	if removed > 0 {
		logger.InfoCtx(ctx, "cleanup worker: purged terminal sessions", "removed", removed)
	}
}
