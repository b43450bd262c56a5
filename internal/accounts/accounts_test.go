package accounts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
)

type fakeUserStore struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User
	seq     int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[string]*models.User{}, byEmail: map[string]*models.User{}}
}

func (s *fakeUserStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, cerrors.New(cerrors.CodeNotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, cerrors.New(cerrors.CodeNotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) CreateUser(_ context.Context, user *models.User) (string, error) {
	s.seq++
	id := fmt.Sprintf("user-%d", s.seq)
	cp := *user
	cp.ID = id
	s.byID[id] = &cp
	s.byEmail[user.Email] = &cp
	return id, nil
}

func (s *fakeUserStore) UpdateUser(_ context.Context, user *models.User) error {
	cp := *user
	s.byID[user.ID] = &cp
	s.byEmail[user.Email] = &cp
	return nil
}

func (s *fakeUserStore) DeleteUser(_ context.Context, id string) error {
	u, ok := s.byID[id]
	if !ok {
		return cerrors.New(cerrors.CodeNotFound, "user not found")
	}
	delete(s.byID, id)
	delete(s.byEmail, u.Email)
	return nil
}

func TestRegisterAndValidateCredentials(t *testing.T) {
	store := newFakeUserStore()
	svc := New(store)
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@example.com", "correcthorse", models.RoleFree)
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)

	got, err := svc.ValidateCredentials(ctx, "a@example.com", "correcthorse", time.Now())
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, 0, got.FailedLoginAttempts)
}

func TestValidateCredentialsLocksAccountAfterFailures(t *testing.T) {
	store := newFakeUserStore()
	svc := New(store)
	ctx := context.Background()
	now := time.Now()

	_, err := svc.Register(ctx, "b@example.com", "correcthorse", models.RoleFree)
	require.NoError(t, err)

	for i := 0; i < models.MaxLoginFailures; i++ {
		_, err := svc.ValidateCredentials(ctx, "b@example.com", "wrongpassword", now)
		require.Error(t, err)
	}

	locked := store.byEmail["b@example.com"]
	require.NotNil(t, locked.LockoutUntil)

	_, err = svc.ValidateCredentials(ctx, "b@example.com", "correcthorse", now)
	require.Error(t, err)
	assert.Equal(t, cerrors.CodeAuthentication, cerrors.CodeOf(err))
}

func TestHashPasswordRejectsShortPassword(t *testing.T) {
	_, err := HashPassword("short")
	require.Error(t, err)
	assert.Equal(t, cerrors.CodeValidation, cerrors.CodeOf(err))
}

func TestChangePassword(t *testing.T) {
	store := newFakeUserStore()
	svc := New(store)
	ctx := context.Background()

	user, err := svc.Register(ctx, "c@example.com", "correcthorse", models.RoleFree)
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "newpassword1"))

	_, err = svc.ValidateCredentials(ctx, "c@example.com", "correcthorse", time.Now())
	require.Error(t, err)

	_, err = svc.ValidateCredentials(ctx, "c@example.com", "newpassword1", time.Now())
	require.NoError(t, err)
}
