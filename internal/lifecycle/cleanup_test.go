package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/events"
	"github.com/vaultfs/vaultfs/internal/models"
)

type fakeCleanupSessions struct {
	sessions map[string]*models.UploadSession
	purged   int64
}

func (s *fakeCleanupSessions) ListStaleActiveSessions(_ context.Context, now time.Time, limit int) ([]*models.UploadSession, error) {
	var out []*models.UploadSession
	for _, sess := range s.sessions {
		live := sess.Status == models.SessionPending || sess.Status == models.SessionUploading || sess.Status == models.SessionAssembling
		if live && !sess.ExpiresAt.After(now) {
			out = append(out, sess)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeCleanupSessions) UpdateUploadSession(_ context.Context, session *models.UploadSession) error {
	s.sessions[session.SessionID] = session
	return nil
}

func (s *fakeCleanupSessions) GetUploadSession(_ context.Context, sessionID string) (*models.UploadSession, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, cerrors.New(cerrors.CodeNotFound, "not found")
	}
	return sess, nil
}

func (s *fakeCleanupSessions) PurgeTerminalSessions(_ context.Context, _ time.Time, _ time.Duration) (int64, error) {
	return s.purged, nil
}

type fakeChunkStore struct {
	deleted []string
	stale   []string
}

func (c *fakeChunkStore) DeleteChunks(_ context.Context, sessionID string) error {
	c.deleted = append(c.deleted, sessionID)
	return nil
}

func (c *fakeChunkStore) StaleChunkSessions(_ time.Time) ([]string, error) {
	return c.stale, nil
}

func TestCleanupWorkerExpiresStaleLiveSessions(t *testing.T) {
	now := time.Now()
	sessions := &fakeCleanupSessions{sessions: map[string]*models.UploadSession{
		"sess-1": {SessionID: "sess-1", Status: models.SessionUploading, ExpiresAt: now.Add(-time.Minute)},
	}}
	chunks := &fakeChunkStore{}

	w := NewCleanupWorker(sessions, chunks, events.NopSink{}, time.Hour, CleanupConfig{BatchSize: 100, OrphanChunkMaxAge: time.Hour, TerminalSessionTTL: 7 * 24 * time.Hour})
	w.now = func() time.Time { return now }
	w.RunOnce(context.Background())

	assert.Equal(t, models.SessionExpired, sessions.sessions["sess-1"].Status)
	assert.Contains(t, chunks.deleted, "sess-1")
}

func TestCleanupWorkerSweepsOrphanChunksButSparesLiveSession(t *testing.T) {
	now := time.Now()
	sessions := &fakeCleanupSessions{sessions: map[string]*models.UploadSession{
		"sess-live": {SessionID: "sess-live", Status: models.SessionUploading, ExpiresAt: now.Add(time.Hour)},
	}}
	chunks := &fakeChunkStore{stale: []string{"sess-live", "sess-gone"}}

	w := NewCleanupWorker(sessions, chunks, events.NopSink{}, time.Hour, CleanupConfig{BatchSize: 100, OrphanChunkMaxAge: time.Hour, TerminalSessionTTL: 7 * 24 * time.Hour})
	w.now = func() time.Time { return now }
	w.RunOnce(context.Background())

	assert.NotContains(t, chunks.deleted, "sess-live")
	assert.Contains(t, chunks.deleted, "sess-gone")
}

func TestCleanupWorkerPurgesTerminalSessions(t *testing.T) {
	sessions := &fakeCleanupSessions{sessions: map[string]*models.UploadSession{}, purged: 3}
	chunks := &fakeChunkStore{}

	w := NewCleanupWorker(sessions, chunks, events.NopSink{}, time.Hour, CleanupConfig{BatchSize: 100, OrphanChunkMaxAge: time.Hour, TerminalSessionTTL: 7 * 24 * time.Hour})
	require.NotPanics(t, func() { w.RunOnce(context.Background()) })
}
