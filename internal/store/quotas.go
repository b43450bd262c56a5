package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/vaultfs/vaultfs/internal/models"
)

// GetOrCreateQuota loads the user's quota row, auto-creating an empty one
// on first use.
func (s *Store) GetOrCreateQuota(ctx context.Context, userID string) (*models.Quota, error) {
	var quota models.Quota
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&quota).Error
	if err == nil {
		return &quota, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	quota = models.Quota{UserID: userID}
	if err := s.db.WithContext(ctx).Create(&quota).Error; err != nil {
		return nil, err
	}
	return &quota, nil
}

func (s *Store) UpdateQuota(ctx context.Context, quota *models.Quota) error {
	return s.db.WithContext(ctx).Save(quota).Error
}
