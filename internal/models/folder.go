package models

import "time"

// Folder is a node in a user's hierarchy. Path is the absolute,
// slash-delimited denormalization of the ancestor chain (e.g. "/a/b"),
// maintained by internal/foldertree on every create/move/rename.
type Folder struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index:idx_folder_user_path,priority:1,unique;index:idx_folder_user_parent,priority:1;not null;size:36" json:"user_id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	ParentID  *string   `gorm:"index:idx_folder_user_parent,priority:2;size:36" json:"parent_id,omitempty"`
	Path      string    `gorm:"index:idx_folder_user_path,priority:2,unique;not null;size:1024" json:"path"`
	Depth     int       `gorm:"not null;default:0" json:"depth"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Folder.
func (Folder) TableName() string { return "folders" }

// IsRoot reports whether the folder has no parent.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}
