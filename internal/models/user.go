package models

import (
	"time"
)

// Role is the user's tier, driving default quota and rate-limit resolution.
type Role string

const (
	RoleFree    Role = "free"
	RolePremium Role = "premium"
	RoleAdmin   Role = "admin"
)

// IsValid reports whether r is one of the declared roles.
func (r Role) IsValid() bool {
	return r == RoleFree || r == RolePremium || r == RoleAdmin
}

// MaxLoginFailures is the number of consecutive failed logins before a User
// is locked out.
const MaxLoginFailures = 5

// LockoutDuration is how long a locked-out account stays locked.
const LockoutDuration = 15 * time.Minute

// MaxRefreshTokens caps the refresh token list per user; the oldest is
// evicted when a new one is added past the cap.
const MaxRefreshTokens = 5

// User is the durable account record.
type User struct {
	ID                  string      `gorm:"primaryKey;size:36" json:"id"`
	Email               string      `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash        string      `gorm:"not null" json:"-"`
	Role                Role        `gorm:"not null;size:20;default:free" json:"role"`
	IsActive            bool        `gorm:"default:true" json:"is_active"`
	LastLogin           *time.Time  `json:"last_login,omitempty"`
	FailedLoginAttempts int         `gorm:"default:0" json:"-"`
	LockoutUntil        *time.Time  `json:"-"`
	QuotaOverride       QuotaLimits `gorm:"serializer:json" json:"quota_override,omitempty"`
	CreatedAt           time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time   `gorm:"autoUpdateTime" json:"updated_at"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for User.
func (User) TableName() string { return "users" }

// RefreshToken is one entry in a User's capped refresh-token list.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string    `gorm:"index;size:36;not null" json:"-"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for RefreshToken.
func (RefreshToken) TableName() string { return "refresh_tokens" }

// IsLockedOut reports whether the account is currently locked, as of now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}

// RecordFailedLogin increments the failure counter and applies the lockout
// once MaxLoginFailures consecutive failures have accumulated.
func (u *User) RecordFailedLogin(now time.Time) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= MaxLoginFailures {
		lockout := now.Add(LockoutDuration)
		u.LockoutUntil = &lockout
	}
}

// RecordSuccessfulLogin resets the failure counter and lockout, and stamps
// LastLogin.
func (u *User) RecordSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockoutUntil = nil
	u.LastLogin = &now
}
