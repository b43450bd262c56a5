package ratelimit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/events"
	"github.com/vaultfs/vaultfs/internal/volatile"
)

func newTestLimiter(t *testing.T, limits Limits) (*Limiter, *volatile.Store) {
	t.Helper()
	store, err := volatile.Open(filepath.Join(t.TempDir(), "rl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, events.NopSink{}, limits), store
}

func TestCheckAllowsUpToLimitThenDenies(t *testing.T) {
	l, _ := newTestLimiter(t, Limits{UploadPerMinute: 3, AbuseThreshold: 20})
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		res, err := l.Check(ctx, TypeUpload, "user:1", now)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Check(ctx, TypeUpload, "user:1", now)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.RetryAfter > 0 && res.RetryAfter <= time.Minute)
}

func TestCheckWindowSlidesOldEntriesOut(t *testing.T) {
	l, _ := newTestLimiter(t, Limits{UploadPerMinute: 1, AbuseThreshold: 20})
	ctx := context.Background()
	now := time.Now()

	res, err := l.Check(ctx, TypeUpload, "user:2", now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	later := now.Add(2 * time.Minute)
	res, err = l.Check(ctx, TypeUpload, "user:2", later)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheckIsolatesIdentifiersAndTypes(t *testing.T) {
	l, _ := newTestLimiter(t, Limits{UploadPerMinute: 1, DownloadPerMinute: 1, AbuseThreshold: 20})
	ctx := context.Background()
	now := time.Now()

	res, err := l.Check(ctx, TypeUpload, "user:3", now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(ctx, TypeDownload, "user:3", now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(ctx, TypeUpload, "user:4", now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRecordAbuseBlocksAtThreshold(t *testing.T) {
	l, _ := newTestLimiter(t, Limits{AbuseThreshold: 3})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, l.RecordAbuse(ctx, "203.0.113.1"))
		assert.False(t, l.IsBlocked(ctx, "203.0.113.1"))
	}

	require.NoError(t, l.RecordAbuse(ctx, "203.0.113.1"))
	assert.True(t, l.IsBlocked(ctx, "203.0.113.1"))
}

func TestIsBlockedFalseForUnknownIP(t *testing.T) {
	l, _ := newTestLimiter(t, Limits{AbuseThreshold: 5})
	assert.False(t, l.IsBlocked(context.Background(), "198.51.100.7"))
}

type captureSink struct {
	events []events.Event
}

func (c *captureSink) Emit(_ context.Context, e events.Event) {
	c.events = append(c.events, e)
}

func TestCheckEmitsRejectedEventOverLimit(t *testing.T) {
	store, err := volatile.Open(filepath.Join(t.TempDir(), "rl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sink := &captureSink{}
	l := New(store, sink, Limits{UploadPerMinute: 1, AbuseThreshold: 20})
	ctx := context.Background()
	now := time.Now()

	res, err := l.Check(ctx, TypeUpload, "user:6", now)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	assert.Empty(t, sink.events)

	res, err = l.Check(ctx, TypeUpload, "user:6", now)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "ratelimit.rejected", sink.events[0].Name)
	assert.Equal(t, "upload", sink.events[0].Fields["limitType"])
}

func TestCheckDisabledWhenLimitIsZero(t *testing.T) {
	l, _ := newTestLimiter(t, Limits{})
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 10; i++ {
		res, err := l.Check(ctx, TypeAuth, "user:5", now)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}
