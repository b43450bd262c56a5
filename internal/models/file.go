package models

import "time"

// StorageTier is the physical tier a File's blob currently lives on.
type StorageTier string

const (
	TierHot  StorageTier = "hot"
	TierCold StorageTier = "cold"
)

// MigrationStatus tracks a File's progress through a hot<->cold move.
type MigrationStatus string

const (
	MigrationNone       MigrationStatus = "none"
	MigrationPending    MigrationStatus = "pending"
	MigrationInProgress MigrationStatus = "in_progress"
	MigrationCompleted  MigrationStatus = "completed"
	MigrationFailed     MigrationStatus = "failed"
)

// FileMetadata is a free-form string->string bag attached to a File, e.g.
// client-supplied tags. Stored as a JSON column.
type FileMetadata map[string]string

// File is the durable record for one uploaded blob.
type File struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	UserID          string          `gorm:"index;size:36;not null" json:"user_id"`
	FolderID        *string         `gorm:"index;size:36" json:"folder_id,omitempty"`
	StorageKey      string          `gorm:"uniqueIndex;not null;size:255" json:"-"`
	OriginalName    string          `gorm:"not null;size:255" json:"original_name"`
	MimeType        string          `gorm:"size:255" json:"mime_type"`
	Size            int64           `gorm:"not null" json:"size"`
	Hash            string          `gorm:"size:64" json:"hash"`
	StorageTier     StorageTier     `gorm:"size:10;not null;default:hot" json:"storage_tier"`
	Downloads       int64           `gorm:"default:0" json:"downloads"`
	LastDownloadAt  *time.Time      `json:"last_download_at,omitempty"`
	LastAccessAt    time.Time       `gorm:"index:idx_tier_access,priority:2" json:"last_access_at"`
	ExpiresAt       *time.Time      `gorm:"index" json:"expires_at,omitempty"`
	IsPublic        bool            `gorm:"default:false" json:"is_public"`
	Password        string          `gorm:"size:255" json:"-"`
	IsDeleted       bool            `gorm:"index;default:false" json:"-"`
	DeletedAt       *time.Time      `json:"-"`
	MigrationStatus MigrationStatus `gorm:"size:20;default:none" json:"migration_status"`
	LastMigrationAt *time.Time      `json:"last_migration_at,omitempty"`
	Metadata        FileMetadata    `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for File.
func (File) TableName() string { return "files" }

// IsExpired reports whether the file's expiry has passed, as of now. A nil
// ExpiresAt means the file never expires.
func (f *File) IsExpired(now time.Time) bool {
	return f.ExpiresAt != nil && !f.ExpiresAt.After(now)
}

// HasPassword reports whether the file is password-protected.
func (f *File) HasPassword() bool {
	return f.Password != ""
}

// Extension returns the file extension (including the leading dot) derived
// from OriginalName, or "" if there is none.
func (f *File) Extension() string {
	for i := len(f.OriginalName) - 1; i >= 0; i-- {
		if f.OriginalName[i] == '.' {
			return f.OriginalName[i:]
		}
		if f.OriginalName[i] == '/' {
			break
		}
	}
	return ""
}
