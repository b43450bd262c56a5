package models

import "time"

// UploadSessionStatus is the state-machine value for an in-progress upload.
type UploadSessionStatus string

const (
	SessionPending     UploadSessionStatus = "pending"
	SessionUploading   UploadSessionStatus = "uploading"
	SessionAssembling  UploadSessionStatus = "assembling"
	SessionCompleted   UploadSessionStatus = "completed"
	SessionFailed      UploadSessionStatus = "failed"
	SessionExpired     UploadSessionStatus = "expired"
)

// validTransitions enumerates the allowed status transitions. A transition
// not listed here is rejected by UploadEngine.
var validTransitions = map[UploadSessionStatus][]UploadSessionStatus{
	SessionPending:    {SessionUploading, SessionExpired, SessionFailed},
	SessionUploading:  {SessionUploading, SessionAssembling, SessionExpired, SessionFailed},
	SessionAssembling: {SessionCompleted, SessionFailed, SessionExpired},
}

// CanTransition reports whether moving from-to is allowed by the state
// machine.
func CanTransition(from, to UploadSessionStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CompletedChunk records one successfully-written chunk of an upload.
type CompletedChunk struct {
	Index       int       `json:"index"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CompletedAt time.Time `json:"completed_at"`
}

// CompletedChunks is the JSON-serialized list stored on UploadSession.
type CompletedChunks []CompletedChunk

// ByIndex returns the chunk at index, and whether it was found.
func (c CompletedChunks) ByIndex(index int) (CompletedChunk, bool) {
	for _, chunk := range c {
		if chunk.Index == index {
			return chunk, true
		}
	}
	return CompletedChunk{}, false
}

// UploadSession is the durable record tracking one chunked-upload attempt.
type UploadSession struct {
	SessionID       string              `gorm:"primaryKey;size:36" json:"session_id"`
	UserID          string              `gorm:"index;size:36;not null" json:"user_id"`
	Filename        string              `gorm:"not null;size:255" json:"filename"`
	MimeType        string              `gorm:"size:255" json:"mime_type"`
	TotalSize       int64               `gorm:"not null" json:"total_size"`
	ExpectedHash    string              `gorm:"size:64" json:"expected_hash,omitempty"`
	FolderID        *string             `gorm:"size:36" json:"folder_id,omitempty"`
	ChunkSize       int64               `gorm:"not null" json:"chunk_size"`
	TotalChunks     int                 `gorm:"not null" json:"total_chunks"`
	CompletedChunks CompletedChunks     `gorm:"serializer:json" json:"completed_chunks"`
	Status          UploadSessionStatus `gorm:"size:20;not null;default:pending" json:"status"`
	ErrorCode       string              `gorm:"size:50" json:"error_code,omitempty"`
	ErrorMessage    string              `gorm:"size:500" json:"error_message,omitempty"`
	FileID          *string             `gorm:"size:36" json:"file_id,omitempty"`
	StorageTier     *StorageTier        `gorm:"size:10" json:"storage_tier,omitempty"`
	StartedAt       time.Time           `gorm:"not null" json:"started_at"`
	LastActivityAt  time.Time           `gorm:"not null" json:"last_activity_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	ExpiresAt       time.Time           `gorm:"index" json:"expires_at"`
}

// TableName returns the table name for UploadSession.
func (UploadSession) TableName() string { return "upload_sessions" }

// IsComplete reports whether every chunk has been recorded.
func (s *UploadSession) IsComplete() bool {
	return len(s.CompletedChunks) == s.TotalChunks
}

// HasChunk reports whether chunk index has already been recorded, so a
// re-posted chunk can be treated as a no-op rather than double-counted.
func (s *UploadSession) HasChunk(index int) bool {
	_, ok := s.CompletedChunks.ByIndex(index)
	return ok
}
