package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/events"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/storage"
)

type fakeExpiryStore struct {
	files       map[string]*models.File
	softDeleted []string
}

func (s *fakeExpiryStore) ListExpiredFiles(_ context.Context, now time.Time, limit int) ([]*models.File, error) {
	var out []*models.File
	for _, f := range s.files {
		if !f.IsDeleted && f.ExpiresAt != nil && !f.ExpiresAt.After(now) {
			out = append(out, f)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeExpiryStore) SoftDeleteFile(_ context.Context, id string, _ time.Time) error {
	s.softDeleted = append(s.softDeleted, id)
	if f, ok := s.files[id]; ok {
		f.IsDeleted = true
	}
	return nil
}

type fakeBlobDeleter struct{ deleted []string }

func (b *fakeBlobDeleter) Delete(_ context.Context, storageKey string, _ storage.Tier) error {
	b.deleted = append(b.deleted, storageKey)
	return nil
}

type fakeExpiryQuota struct{ removed int64 }

func (q *fakeExpiryQuota) RemoveFile(_ context.Context, _ string, size int64) error {
	q.removed += size
	return nil
}

type fakeCache struct{ deleted []string }

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	return nil
}

func TestExpiryWorkerSweepsExpiredFiles(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	store := &fakeExpiryStore{files: map[string]*models.File{
		"f-1": {ID: "f-1", UserID: "u-1", StorageKey: "key-1", Size: 100, ExpiresAt: &past},
	}}
	blobs := &fakeBlobDeleter{}
	quota := &fakeExpiryQuota{}
	cache := &fakeCache{}

	w := NewExpiryWorker(store, blobs, quota, cache, events.NopSink{}, time.Hour, 100)
	w.now = func() time.Time { return now }

	w.RunOnce(context.Background())

	assert.Equal(t, []string{"f-1"}, store.softDeleted)
	assert.Equal(t, []string{"key-1"}, blobs.deleted)
	assert.Equal(t, int64(100), quota.removed)
	require.Len(t, cache.deleted, 1)
	assert.Equal(t, "file:f-1", cache.deleted[0])
}

func TestExpiryWorkerSkipsNonExpiredFiles(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)

	store := &fakeExpiryStore{files: map[string]*models.File{
		"f-2": {ID: "f-2", UserID: "u-1", StorageKey: "key-2", Size: 50, ExpiresAt: &future},
	}}
	blobs := &fakeBlobDeleter{}
	quota := &fakeExpiryQuota{}
	cache := &fakeCache{}

	w := NewExpiryWorker(store, blobs, quota, cache, events.NopSink{}, time.Hour, 100)
	w.now = func() time.Time { return now }
	w.RunOnce(context.Background())

	assert.Empty(t, store.softDeleted)
	assert.Empty(t, blobs.deleted)
}
