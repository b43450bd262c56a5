// Package quota is the QuotaAccountant: per-user storage, file count, and
// bandwidth accounting against role-derived (and optionally overridden)
// limits.
package quota

import (
	"context"
	"time"

	"github.com/vaultfs/vaultfs/internal/models"
)

// Reason enumerates why canUpload rejected a request.
type Reason string

const (
	ReasonFileTooLarge      Reason = "FILE_TOO_LARGE"
	ReasonStorageExceeded   Reason = "STORAGE_EXCEEDED"
	ReasonFileCountExceeded Reason = "FILE_COUNT_EXCEEDED"
)

// Violation carries a rejection reason along with the limit it tripped.
type Violation struct {
	Reason   Reason `json:"reason"`
	Limit    int64  `json:"limit"`
	Current  int64  `json:"current"`
	Required int64  `json:"required,omitempty"`
}

// Decision is the result of canUpload.
type Decision struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations,omitempty"`
}

// metadataStore is the subset of internal/store.Store the accountant needs.
type metadataStore interface {
	GetOrCreateQuota(ctx context.Context, userID string) (*models.Quota, error)
	UpdateQuota(ctx context.Context, quota *models.Quota) error
	AggregateUserStorage(ctx context.Context, userID string) (totalSize int64, fileCount int64, err error)
}

// userLookup resolves the role/override an Accountant needs to turn a raw
// usage row into the role-resolved limit CanUpload already enforces.
type userLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Accountant is the QuotaAccountant.
type Accountant struct {
	store metadataStore
	users userLookup
}

// New constructs an Accountant backed by store, resolving each user's
// role/override through users for isOverQuota bookkeeping.
func New(store metadataStore, users userLookup) *Accountant {
	return &Accountant{store: store, users: users}
}

// resolveLimits looks up userID's role and quota override and resolves them
// into the limit currently in force, the same resolution CanUpload applies.
func (a *Accountant) resolveLimits(ctx context.Context, userID string) (models.QuotaLimits, error) {
	user, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		return models.QuotaLimits{}, err
	}
	return models.ResolveLimits(user.Role, user.QuotaOverride), nil
}

// CanUpload reports whether a user with role and quota override may ingest
// a file of fileSize bytes, given their current usage.
func (a *Accountant) CanUpload(ctx context.Context, userID string, role models.Role, override models.QuotaLimits, fileSize int64) (Decision, error) {
	q, err := a.store.GetOrCreateQuota(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	limits := models.ResolveLimits(role, override)

	var violations []Violation
	if limits.MaxFileSize != nil && *limits.MaxFileSize != models.Unlimited && fileSize > *limits.MaxFileSize {
		violations = append(violations, Violation{Reason: ReasonFileTooLarge, Limit: *limits.MaxFileSize, Current: fileSize, Required: fileSize})
	}
	if limits.MaxStorage != nil && *limits.MaxStorage != models.Unlimited && q.Usage.Storage+fileSize > *limits.MaxStorage {
		violations = append(violations, Violation{Reason: ReasonStorageExceeded, Limit: *limits.MaxStorage, Current: q.Usage.Storage, Required: fileSize})
	}
	if limits.MaxFiles != nil && *limits.MaxFiles != models.Unlimited && q.Usage.Files+1 > *limits.MaxFiles {
		violations = append(violations, Violation{Reason: ReasonFileCountExceeded, Limit: *limits.MaxFiles, Current: q.Usage.Files})
	}

	return Decision{Allowed: len(violations) == 0, Violations: violations}, nil
}

// AddFile records a newly completed upload against the user's usage. Usage
// is a soft limit: ingress is gated by CanUpload, not this call, so
// isOverQuota may flip true here without rejecting anything.
func (a *Accountant) AddFile(ctx context.Context, userID string, size int64) error {
	q, err := a.store.GetOrCreateQuota(ctx, userID)
	if err != nil {
		return err
	}
	limits, err := a.resolveLimits(ctx, userID)
	if err != nil {
		return err
	}
	q.Usage.Storage += size
	q.Usage.Files++
	a.refreshOverQuota(q, limits)
	return a.store.UpdateQuota(ctx, q)
}

// RemoveFile reverses AddFile's accounting for a deleted/expired file.
func (a *Accountant) RemoveFile(ctx context.Context, userID string, size int64) error {
	q, err := a.store.GetOrCreateQuota(ctx, userID)
	if err != nil {
		return err
	}
	limits, err := a.resolveLimits(ctx, userID)
	if err != nil {
		return err
	}
	q.Usage.Storage -= size
	if q.Usage.Storage < 0 {
		q.Usage.Storage = 0
	}
	q.Usage.Files--
	if q.Usage.Files < 0 {
		q.Usage.Files = 0
	}
	a.refreshOverQuota(q, limits)
	return a.store.UpdateQuota(ctx, q)
}

// AddBandwidth accounts bytes transferred against the user's rolling
// daily/monthly counters, lazily resetting them when the reset window has
// elapsed (Decision: bandwidth resets are checked on access, not swept by
// a background worker).
func (a *Accountant) AddBandwidth(ctx context.Context, userID string, bytes int64, now time.Time) error {
	q, err := a.store.GetOrCreateQuota(ctx, userID)
	if err != nil {
		return err
	}
	resetBandwidthIfStale(&q.Usage.Bandwidth, now)
	q.Usage.Bandwidth.Daily += bytes
	q.Usage.Bandwidth.Monthly += bytes
	return a.store.UpdateQuota(ctx, q)
}

// GetSummary returns the user's current quota row, lazily resetting stale
// bandwidth counters before returning.
func (a *Accountant) GetSummary(ctx context.Context, userID string, now time.Time) (*models.Quota, error) {
	q, err := a.store.GetOrCreateQuota(ctx, userID)
	if err != nil {
		return nil, err
	}
	if resetBandwidthIfStale(&q.Usage.Bandwidth, now) {
		if err := a.store.UpdateQuota(ctx, q); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// SyncFromFiles recomputes storage/file-count usage from the durable File
// table, correcting any drift from crashed or partially-applied
// AddFile/RemoveFile calls.
func (a *Accountant) SyncFromFiles(ctx context.Context, userID string) error {
	totalSize, fileCount, err := a.store.AggregateUserStorage(ctx, userID)
	if err != nil {
		return err
	}
	q, err := a.store.GetOrCreateQuota(ctx, userID)
	if err != nil {
		return err
	}
	limits, err := a.resolveLimits(ctx, userID)
	if err != nil {
		return err
	}
	q.Usage.Storage = totalSize
	q.Usage.Files = fileCount
	a.refreshOverQuota(q, limits)
	return a.store.UpdateQuota(ctx, q)
}

// refreshOverQuota flips IsOverQuota/OverQuotaSince against limits, the
// role-resolved limit in force for this user — never against the raw
// Quota row's own Limits field, which is only ever populated by an
// explicit admin override.
func (a *Accountant) refreshOverQuota(q *models.Quota, limits models.QuotaLimits) {
	over := limits.MaxStorage != nil && *limits.MaxStorage != models.Unlimited && q.Usage.Storage > *limits.MaxStorage
	if over && !q.IsOverQuota {
		now := time.Now()
		q.OverQuotaSince = &now
	}
	if !over {
		q.OverQuotaSince = nil
	}
	q.IsOverQuota = over
}

// resetBandwidthIfStale lazily rolls the daily counter over on a calendar
// day change and the monthly counter over on a calendar month change,
// rather than running a sweep. Returns true if either counter reset.
func resetBandwidthIfStale(b *models.BandwidthUsage, now time.Time) bool {
	if b.LastReset.IsZero() {
		b.LastReset = now
		return true
	}
	reset := false
	if now.YearDay() != b.LastReset.YearDay() || now.Year() != b.LastReset.Year() {
		b.Daily = 0
		reset = true
	}
	if now.Month() != b.LastReset.Month() || now.Year() != b.LastReset.Year() {
		b.Monthly = 0
		reset = true
	}
	if reset {
		b.LastReset = now
	}
	return reset
}
