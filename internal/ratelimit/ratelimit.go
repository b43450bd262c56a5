// Package ratelimit is the RateLimiter and abuse gate: a sliding-window
// counter per (type, identifier) backed by the VolatileStore, plus an
// abuse counter that blocks an IP outright once it crosses a threshold.
// Both fail open when the VolatileStore is unreachable, per spec.
package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/vaultfs/vaultfs/internal/events"
)

// Type identifies which budget a check applies to.
type Type string

const (
	TypeUpload   Type = "upload"
	TypeDownload Type = "download"
	TypeAuth     Type = "auth"
)

const window = time.Minute
const abuseWindow = time.Hour

// volatileStore is the subset of internal/volatile.Store the limiter needs.
type volatileStore interface {
	ZAdd(ctx context.Context, key string, score int64, member string) error
	ZRemRangeByScore(ctx context.Context, key string, min, max int64) (int, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZRange(ctx context.Context, key string, start, stop int) ([]string, error)
	Incr(ctx context.Context, key string) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Limiter is the RateLimiter.
type Limiter struct {
	store             volatileStore
	sink              events.Sink
	uploadPerMinute   int
	downloadPerMinute int
	authPerMinute     int
	abuseThreshold    int
}

// Limits configures per-type budgets.
type Limits struct {
	UploadPerMinute   int
	DownloadPerMinute int
	AuthPerMinute     int
	AbuseThreshold    int
}

// New constructs a Limiter backed by store, reporting rejections to sink.
// sink may be events.NopSink{}.
func New(store volatileStore, sink events.Sink, limits Limits) *Limiter {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Limiter{
		store:             store,
		sink:              sink,
		uploadPerMinute:   limits.UploadPerMinute,
		downloadPerMinute: limits.DownloadPerMinute,
		authPerMinute:     limits.AuthPerMinute,
		abuseThreshold:    limits.AbuseThreshold,
	}
}

// Result reports the outcome of a rate-limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func (l *Limiter) limitFor(t Type) int {
	switch t {
	case TypeUpload:
		return l.uploadPerMinute
	case TypeDownload:
		return l.downloadPerMinute
	case TypeAuth:
		return l.authPerMinute
	default:
		return 0
	}
}

func rateLimitKey(t Type, identifier string) string {
	return "ratelimit:" + string(t) + ":" + identifier
}

// Check applies the sliding window for (t, identifier) at time now, adding
// an entry when the request is allowed. Fails open (allows) if the
// VolatileStore errors.
func (l *Limiter) Check(ctx context.Context, t Type, identifier string, now time.Time) (Result, error) {
	limit := l.limitFor(t)
	if limit <= 0 {
		return Result{Allowed: true, Remaining: 0}, nil
	}

	key := rateLimitKey(t, identifier)
	nowMillis := now.UnixMilli()
	windowStart := nowMillis - window.Milliseconds()

	if _, err := l.store.ZRemRangeByScore(ctx, key, 0, windowStart); err != nil {
		return Result{Allowed: true}, nil
	}

	count, err := l.store.ZCard(ctx, key)
	if err != nil {
		return Result{Allowed: true}, nil
	}

	if count >= int64(limit) {
		retryAfter := window
		if oldest, err := l.store.ZRange(ctx, key, 0, 0); err == nil && len(oldest) > 0 {
			retryAfter = retryAfterFromOldest(oldest[0], nowMillis)
		}
		l.sink.Emit(ctx, events.Event{Name: "ratelimit.rejected", At: now, Fields: map[string]any{"limitType": string(t)}})
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	member := fmt.Sprintf("%d:%s", nowMillis, randomSuffix())
	if err := l.store.ZAdd(ctx, key, nowMillis, member); err != nil {
		return Result{Allowed: true}, nil
	}

	return Result{Allowed: true, Remaining: limit - int(count) - 1}, nil
}

// retryAfterFromOldest parses a "<millis>:<rand>" member to compute when
// it ages out of the window.
func retryAfterFromOldest(member string, nowMillis int64) time.Duration {
	var ts int64
	fmt.Sscanf(member, "%d:", &ts)
	expiresAt := ts + window.Milliseconds()
	remaining := expiresAt - nowMillis
	if remaining <= 0 {
		return time.Second
	}
	return time.Duration(remaining) * time.Millisecond
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "0"
	}
	return hex.EncodeToString(buf)
}

func abuseKey(ip string) string {
	return "abuse:" + ip
}

func blacklistKey(ip string) string {
	return "blacklist:" + ip
}

// RecordAbuse increments the abuse counter for ip, blocking it for
// abuseWindow once the counter reaches the configured threshold.
func (l *Limiter) RecordAbuse(ctx context.Context, ip string) error {
	count, err := l.store.Incr(ctx, abuseKey(ip))
	if err != nil {
		return nil
	}
	if count == 1 {
		_ = l.store.Expire(ctx, abuseKey(ip), abuseWindow)
	}
	if int(count) >= l.abuseThreshold {
		return l.store.Set(ctx, blacklistKey(ip), []byte("1"), abuseWindow)
	}
	return nil
}

// IsBlocked reports whether ip is currently blacklisted for abuse. Fails
// open (not blocked) if the VolatileStore errors, including the ordinary
// case of the key not existing.
func (l *Limiter) IsBlocked(ctx context.Context, ip string) bool {
	_, err := l.store.TTL(ctx, blacklistKey(ip))
	return err == nil
}
