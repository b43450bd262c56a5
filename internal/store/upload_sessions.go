package store

import (
	"context"
	"time"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/models"
)

func (s *Store) GetUploadSession(ctx context.Context, sessionID string) (*models.UploadSession, error) {
	return getByField[models.UploadSession](s.db, ctx, "session_id", sessionID, "upload session not found")
}

func (s *Store) CreateUploadSession(ctx context.Context, session *models.UploadSession) error {
	if session.SessionID == "" {
		return cerrors.New(cerrors.CodeValidation, "session id is required")
	}
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *Store) UpdateUploadSession(ctx context.Context, session *models.UploadSession) error {
	result := s.db.WithContext(ctx).Model(&models.UploadSession{}).
		Where("session_id = ?", session.SessionID).
		Select("CompletedChunks", "Status", "ErrorCode", "ErrorMessage", "FileID",
			"StorageTier", "LastActivityAt", "CompletedAt").
		Updates(session)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cerrors.New(cerrors.CodeNotFound, "upload session not found")
	}
	return nil
}

// PurgeTerminalSessions deletes completed/failed/expired UploadSession rows
// whose LastActivityAt is at least minAge old, for the cleanup worker's
// durable-store purge pass.
func (s *Store) PurgeTerminalSessions(ctx context.Context, now time.Time, minAge time.Duration) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("status IN ? AND last_activity_at <= ?", []models.UploadSessionStatus{
			models.SessionCompleted, models.SessionFailed, models.SessionExpired,
		}, now.Add(-minAge)).
		Delete(&models.UploadSession{})
	return result.RowsAffected, result.Error
}

// ListStaleActiveSessions returns sessions still pending/uploading/assembling
// past their ExpiresAt, for the expiry sweep that transitions them to
// expired before the durable purge removes the row outright.
func (s *Store) ListStaleActiveSessions(ctx context.Context, now time.Time, limit int) ([]*models.UploadSession, error) {
	var sessions []*models.UploadSession
	err := s.db.WithContext(ctx).
		Where("expires_at <= ? AND status IN ?", now, []models.UploadSessionStatus{
			models.SessionPending, models.SessionUploading, models.SessionAssembling,
		}).
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
