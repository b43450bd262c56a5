package models

import "time"

// Unlimited is the sentinel limit value meaning "no cap".
const Unlimited int64 = -1

// QuotaLimits overrides one or more role defaults. A nil field means fall
// back to the role default; a value of Unlimited bypasses the check.
type QuotaLimits struct {
	MaxStorage  *int64 `json:"max_storage,omitempty"`
	MaxFileSize *int64 `json:"max_file_size,omitempty"`
	MaxFiles    *int64 `json:"max_files,omitempty"`
}

// BandwidthUsage tracks rolling daily/monthly transfer counters.
type BandwidthUsage struct {
	Daily     int64     `json:"daily"`
	Monthly   int64     `json:"monthly"`
	LastReset time.Time `json:"last_reset"`
}

// QuotaUsage is the live counter state for a user.
type QuotaUsage struct {
	Storage   int64          `json:"storage"`
	Files     int64          `json:"files"`
	Bandwidth BandwidthUsage `json:"bandwidth"`
}

// Quota is the durable per-user accounting record.
type Quota struct {
	UserID        string      `gorm:"primaryKey;size:36" json:"user_id"`
	Limits        QuotaLimits `gorm:"serializer:json" json:"limits"`
	Usage         QuotaUsage  `gorm:"serializer:json" json:"usage"`
	IsOverQuota   bool        `gorm:"default:false" json:"is_over_quota"`
	OverQuotaSince *time.Time `json:"over_quota_since,omitempty"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Quota.
func (Quota) TableName() string { return "quotas" }

// RoleDefaults are the built-in limits applied when a user has no override
// for that field.
var RoleDefaults = map[Role]QuotaLimits{
	RoleFree: {
		MaxStorage:  int64Ptr(50 * 1024 * 1024 * 1024),
		MaxFileSize: int64Ptr(10 * 1024 * 1024 * 1024),
		MaxFiles:    int64Ptr(1000),
	},
	RolePremium: {
		MaxStorage:  int64Ptr(Unlimited),
		MaxFileSize: int64Ptr(Unlimited),
		MaxFiles:    int64Ptr(Unlimited),
	},
	RoleAdmin: {
		MaxStorage:  int64Ptr(Unlimited),
		MaxFileSize: int64Ptr(Unlimited),
		MaxFiles:    int64Ptr(Unlimited),
	},
}

func int64Ptr(v int64) *int64 { return &v }

// ResolveLimits merges an override on top of the role default: a non-nil
// override field wins, otherwise the role default applies.
func ResolveLimits(role Role, override QuotaLimits) QuotaLimits {
	def := RoleDefaults[role]
	resolved := def
	if override.MaxStorage != nil {
		resolved.MaxStorage = override.MaxStorage
	}
	if override.MaxFileSize != nil {
		resolved.MaxFileSize = override.MaxFileSize
	}
	if override.MaxFiles != nil {
		resolved.MaxFiles = override.MaxFiles
	}
	return resolved
}
