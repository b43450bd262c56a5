package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
)

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "id", id, "user not found")
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "email", email, "user not found")
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (string, error) {
	return createWithID(s.db, ctx, user, func(u *models.User, id string) { u.ID = id }, user.ID, "email already registered")
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Select("Email", "PasswordHash", "Role", "IsActive", "LastLogin",
			"FailedLoginAttempts", "LockoutUntil", "QuotaOverride").
		Updates(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cerrors.New(cerrors.CodeNotFound, "user not found")
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cerrors.New(cerrors.CodeNotFound, "user not found")
	}
	return nil
}

// AddRefreshToken appends a refresh token to the user, evicting the oldest
// when the count would exceed models.MaxRefreshTokens.
func (s *Store) AddRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.RefreshToken
		if err := tx.Where("user_id = ?", userID).Order("created_at asc").Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) >= models.MaxRefreshTokens {
			toEvict := existing[:len(existing)-models.MaxRefreshTokens+1]
			for _, rt := range toEvict {
				if err := tx.Delete(&rt).Error; err != nil {
					return err
				}
			}
		}
		return tx.Create(&models.RefreshToken{
			UserID:    userID,
			Token:     token,
			ExpiresAt: expiresAt,
		}).Error
	})
}

func (s *Store) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return getByField[models.RefreshToken](s.db, ctx, "token", token, "refresh token not found")
}

func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.RefreshToken{}).Error
}

func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}
