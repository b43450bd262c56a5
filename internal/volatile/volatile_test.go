package volatile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "volatile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDeleteExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.Equal(t, cerrors.CodeNotFound, cerrors.CodeOf(err))

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(val))

	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "k"))
	exists, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSetWithTTLExpires(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", []byte("v"), time.Minute))
	ttl, err := s.TTL(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}

func TestIncrByAccumulates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	v, err = s.IncrBy(ctx, "counter", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 6, v)
}

func TestHashOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.HSet(ctx, "h1", "a", []byte("1")))
	require.NoError(t, s.HSet(ctx, "h1", "b", []byte("2")))

	val, err := s.HGet(ctx, "h1", "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(val))

	all, err := s.HGetAll(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, all)

	require.NoError(t, s.HDel(ctx, "h1", "a"))
	all, err = s.HGetAll(ctx, "h1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSetOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SAdd(ctx, "s1", "x"))
	require.NoError(t, s.SAdd(ctx, "s1", "y"))

	isMember, err := s.SIsMember(ctx, "s1", "x")
	require.NoError(t, err)
	assert.True(t, isMember)

	members, err := s.SMembers(ctx, "s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, members)

	require.NoError(t, s.SRem(ctx, "s1", "x"))
	members, err = s.SMembers(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, members)
}

func TestSortedSetSlidingWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, "z1", 100, "req-1"))
	require.NoError(t, s.ZAdd(ctx, "z1", 200, "req-2"))
	require.NoError(t, s.ZAdd(ctx, "z1", 300, "req-3"))

	count, err := s.ZCard(ctx, "z1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	removed, err := s.ZRemRangeByScore(ctx, "z1", 0, 150)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	count, err = s.ZCard(ctx, "z1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	members, err := s.ZRange(ctx, "z1", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-2", "req-3"}, members)
}

func TestZAddReplacesScoreForExistingMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, "z2", 100, "m"))
	require.NoError(t, s.ZAdd(ctx, "z2", 500, "m"))

	count, err := s.ZCard(ctx, "z2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	removed, err := s.ZRemRangeByScore(ctx, "z2", 0, 200)
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "member should have moved to score 500, not still at 100")
}

func TestPipelineExecutesAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := s.NewPipeline().
		Set("a", []byte("1"), 0).
		IncrBy("counter", 3).
		Delete("unused")
	require.NoError(t, s.Exec(ctx, p))

	val, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(val))

	counterRaw, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.EqualValues(t, 3, decodeInt64(counterRaw))
}

func TestScanDeleteRemovesByPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "ratelimit:user-1:a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "ratelimit:user-1:b", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "ratelimit:user-2:a", []byte("1"), 0))

	n, err := s.ScanDelete(ctx, "ratelimit:user-1:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	exists, err := s.Exists(ctx, "ratelimit:user-2:a")
	require.NoError(t, err)
	assert.True(t, exists)
}
