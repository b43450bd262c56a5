package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLockoutAfterFiveFailures(t *testing.T) {
	u := &User{}
	now := time.Now()
	for i := 0; i < 4; i++ {
		u.RecordFailedLogin(now)
		assert.False(t, u.IsLockedOut(now))
	}
	u.RecordFailedLogin(now)
	assert.True(t, u.IsLockedOut(now))
	assert.False(t, u.IsLockedOut(now.Add(LockoutDuration+time.Second)))
}

func TestUserSuccessfulLoginResetsCounters(t *testing.T) {
	u := &User{}
	now := time.Now()
	for i := 0; i < 5; i++ {
		u.RecordFailedLogin(now)
	}
	require := assert.New(t)
	require.True(u.IsLockedOut(now))
	u.RecordSuccessfulLogin(now)
	require.False(u.IsLockedOut(now))
	require.Equal(0, u.FailedLoginAttempts)
}

func TestFileIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	f := &File{ExpiresAt: &past}
	assert.True(t, f.IsExpired(now))

	f2 := &File{}
	assert.False(t, f2.IsExpired(now))

	future := now.Add(time.Hour)
	f3 := &File{ExpiresAt: &future}
	assert.False(t, f3.IsExpired(now))
}

func TestUploadSessionTransitions(t *testing.T) {
	assert.True(t, CanTransition(SessionPending, SessionUploading))
	assert.True(t, CanTransition(SessionUploading, SessionAssembling))
	assert.True(t, CanTransition(SessionAssembling, SessionCompleted))
	assert.False(t, CanTransition(SessionCompleted, SessionUploading))
	assert.False(t, CanTransition(SessionPending, SessionCompleted))
}

func TestUploadSessionIsCompleteByChunkCount(t *testing.T) {
	s := &UploadSession{TotalChunks: 2, CompletedChunks: CompletedChunks{
		{Index: 0, Size: 10},
		{Index: 1, Size: 5},
	}}
	assert.True(t, s.IsComplete())
	assert.True(t, s.HasChunk(0))
	assert.False(t, s.HasChunk(2))
}

func TestResolveLimitsUsesOverrideOverRoleDefault(t *testing.T) {
	limits := ResolveLimits(RoleFree, QuotaLimits{})
	assert.EqualValues(t, 50*1024*1024*1024, *limits.MaxStorage)

	override := int64(5 * 1024 * 1024 * 1024)
	limits2 := ResolveLimits(RoleFree, QuotaLimits{MaxStorage: &override})
	assert.EqualValues(t, override, *limits2.MaxStorage)
	assert.EqualValues(t, 1000, *limits2.MaxFiles)
}

func TestResolveLimitsPremiumUnlimited(t *testing.T) {
	limits := ResolveLimits(RolePremium, QuotaLimits{})
	assert.EqualValues(t, Unlimited, *limits.MaxStorage)
	assert.EqualValues(t, Unlimited, *limits.MaxFileSize)
	assert.EqualValues(t, Unlimited, *limits.MaxFiles)
}

func TestRoleIsValid(t *testing.T) {
	assert.True(t, RoleFree.IsValid())
	assert.True(t, RolePremium.IsValid())
	assert.True(t, RoleAdmin.IsValid())
	assert.False(t, Role("superuser").IsValid())
}
