// Package accounts is the adapter-side user-account service: credential
// hashing and verification, login bookkeeping (lockout, failure counting),
// and user CRUD on top of internal/store. It sits outside the core engines
// described by the storage/upload/download components; the core never
// imports it, it only ever consumes the Principal values this package's
// callers produce after a successful login.
package accounts

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
)

// DefaultBcryptCost is the minimum cost spec.md §3 requires for User.passwordHash.
const DefaultBcryptCost = 12

// MinPasswordLength is the minimum accepted plaintext password length.
const MinPasswordLength = 8

// userStore is the subset of internal/store.Store accounts needs.
type userStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (string, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// Service is the account management and credential-verification surface.
type Service struct {
	store userStore
}

// New constructs a Service backed by store.
func New(store userStore) *Service {
	return &Service{store: store}
}

// HashPassword bcrypt-hashes a plaintext password at DefaultBcryptCost.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", cerrors.New(cerrors.CodeValidation, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", cerrors.Wrap(cerrors.CodeInternal, "failed to hash password", err)
	}
	return string(hash), nil
}

// Register creates a new User with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password string, role models.Role) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	id, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

// ValidateCredentials verifies email/password, applying the account-lockout
// policy from models.User. A successful login resets the failure counter;
// a failure increments it and locks the account for models.LockoutDuration
// once models.MaxLoginFailures is reached.
func (s *Service) ValidateCredentials(ctx context.Context, email, password string, now time.Time) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, cerrors.New(cerrors.CodeAuthentication, "invalid email or password")
	}
	if !user.IsActive {
		return nil, cerrors.New(cerrors.CodeAuthentication, "account is disabled")
	}
	if user.IsLockedOut(now) {
		return nil, cerrors.New(cerrors.CodeAuthentication, "account is locked, try again later")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		user.RecordFailedLogin(now)
		if updErr := s.store.UpdateUser(ctx, user); updErr != nil {
			return nil, cerrors.Wrap(cerrors.CodeInternal, "failed to record login failure", updErr)
		}
		return nil, cerrors.New(cerrors.CodeAuthentication, "invalid email or password")
	}

	user.RecordSuccessfulLogin(now)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, cerrors.Wrap(cerrors.CodeInternal, "failed to record login", err)
	}
	return user, nil
}

// ChangePassword overwrites a user's password hash.
func (s *Service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.store.UpdateUser(ctx, user)
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// Delete removes a user account.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteUser(ctx, id)
}
