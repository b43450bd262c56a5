// Package upload is the UploadEngine: chunked-upload session lifecycle,
// per-chunk integrity checks, and final assembly into a durable File.
package upload

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/events"
	"github.com/vaultfs/vaultfs/internal/models"
	"github.com/vaultfs/vaultfs/internal/quota"
	"github.com/vaultfs/vaultfs/internal/storage"
	"github.com/vaultfs/vaultfs/internal/tracing"
)

// metadataStore is the subset of internal/store.Store the engine needs.
type metadataStore interface {
	GetUploadSession(ctx context.Context, sessionID string) (*models.UploadSession, error)
	CreateUploadSession(ctx context.Context, session *models.UploadSession) error
	UpdateUploadSession(ctx context.Context, session *models.UploadSession) error
	CreateFile(ctx context.Context, file *models.File) (string, error)
}

// userLookup resolves the role/quota-override view of the uploading user.
type userLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// quotaAccountant is the subset of internal/quota.Accountant the engine needs.
type quotaAccountant interface {
	CanUpload(ctx context.Context, userID string, role models.Role, override models.QuotaLimits, fileSize int64) (quota.Decision, error)
	AddFile(ctx context.Context, userID string, size int64) error
}

// volatileStore is the subset of internal/volatile.Store the engine needs.
type volatileStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dst any) error
	Delete(ctx context.Context, key string) error
	SAdd(ctx context.Context, key, member string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// blockStore is the subset of internal/storage.Backend the engine needs.
type blockStore interface {
	WriteChunk(ctx context.Context, sessionID string, chunkIndex int, data []byte) error
	AssembleChunks(ctx context.Context, sessionID, storageKey string, totalChunks int, tier storage.Tier) (storage.AssembleResult, error)
	DeleteChunks(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, storageKey string, tier storage.Tier) error
}

// Config tunes chunk size, session lifetime, and free-tier expiry.
type Config struct {
	ChunkSize      int64
	SessionTTL     time.Duration
	ExpiryDaysFree int
}

// Engine is the UploadEngine.
type Engine struct {
	store  metadataStore
	users  userLookup
	quota  quotaAccountant
	volat  volatileStore
	blocks blockStore
	sink   events.Sink
	cfg    Config
}

// New constructs an Engine. sink may be events.NopSink{}.
func New(store metadataStore, users userLookup, quota quotaAccountant, volat volatileStore, blocks blockStore, sink events.Sink, cfg Config) *Engine {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Engine{store: store, users: users, quota: quota, volat: volat, blocks: blocks, sink: sink, cfg: cfg}
}

// InitResult is returned by Init.
type InitResult struct {
	SessionID   string
	ChunkSize   int64
	TotalChunks int
	ExpiresAt   time.Time
	UploadURLs  []string
}

func sessionCacheKey(sessionID string) string { return "upload_session:" + sessionID }
func chunkSetKey(sessionID string) string     { return "upload_chunks:" + sessionID }

// Init begins a chunked-upload session.
func (e *Engine) Init(ctx context.Context, userID, filename string, size int64, expectedHash, mimeType string, folderID *string, now time.Time) (InitResult, error) {
	if size <= 0 {
		return InitResult{}, cerrors.New(cerrors.CodeValidation, "file size must be greater than zero")
	}
	cleanName, err := sanitizeFilename(filename)
	if err != nil {
		return InitResult{}, err
	}
	mimeType = resolveMimeType(mimeType, cleanName)

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return InitResult{}, err
	}
	decision, err := e.quota.CanUpload(ctx, userID, user.Role, user.QuotaOverride, size)
	if err != nil {
		return InitResult{}, err
	}
	if !decision.Allowed {
		return InitResult{}, cerrors.New(cerrors.CodeFileSizeLimit, "quota exceeded").
			WithContext(map[string]any{"violations": decision.Violations})
	}

	chunkSize := e.cfg.ChunkSize
	totalChunks := int((size + chunkSize - 1) / chunkSize)
	sessionID := uuid.New().String()
	expiresAt := now.Add(e.cfg.SessionTTL)

	session := &models.UploadSession{
		SessionID:      sessionID,
		UserID:         userID,
		Filename:       cleanName,
		MimeType:       mimeType,
		TotalSize:      size,
		ExpectedHash:   expectedHash,
		FolderID:       folderID,
		ChunkSize:      chunkSize,
		TotalChunks:    totalChunks,
		Status:         models.SessionPending,
		StartedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
	}
	if err := e.store.CreateUploadSession(ctx, session); err != nil {
		return InitResult{}, err
	}
	if err := e.volat.SetJSON(ctx, sessionCacheKey(sessionID), session, e.cfg.SessionTTL); err != nil {
		// Cache is best-effort; the durable record is authoritative.
		_ = err
	}

	e.sink.Emit(ctx, events.Event{Name: "upload.initiated", At: now, UserID: userID, SessionID: sessionID,
		Fields: map[string]any{"size": size, "totalChunks": totalChunks}})

	return InitResult{
		SessionID:   sessionID,
		ChunkSize:   chunkSize,
		TotalChunks: totalChunks,
		ExpiresAt:   expiresAt,
		UploadURLs:  synthesizeUploadURLs(sessionID, totalChunks),
	}, nil
}

func synthesizeUploadURLs(sessionID string, totalChunks int) []string {
	urls := make([]string, totalChunks)
	for i := 0; i < totalChunks; i++ {
		urls[i] = "/api/v1/upload/" + sessionID + "/chunk/" + strconv.Itoa(i)
	}
	return urls
}

// resolveSession loads sessionID, preferring the volatile cache, rehydrating
// it from the durable store on a cache miss, and rejecting an expired or
// absent session as SESSION_EXPIRED.
func (e *Engine) resolveSession(ctx context.Context, sessionID string, now time.Time) (*models.UploadSession, error) {
	var cached models.UploadSession
	if err := e.volat.GetJSON(ctx, sessionCacheKey(sessionID), &cached); err == nil {
		if !now.Before(cached.ExpiresAt) {
			return nil, cerrors.New(cerrors.CodeSessionExpired, "upload session expired")
		}
		return &cached, nil
	}

	session, err := e.store.GetUploadSession(ctx, sessionID)
	if err != nil {
		return nil, cerrors.New(cerrors.CodeSessionExpired, "upload session not found")
	}
	if !now.Before(session.ExpiresAt) {
		return nil, cerrors.New(cerrors.CodeSessionExpired, "upload session expired")
	}
	_ = e.volat.SetJSON(ctx, sessionCacheKey(sessionID), session, e.cfg.SessionTTL)
	return session, nil
}

// ChunkResult reports the outcome of one chunk ingest.
type ChunkResult struct {
	AlreadyUploaded bool
	CompletedChunks int
	TotalChunks     int
}

// Chunk ingests one chunk of sessionID.
func (e *Engine) Chunk(ctx context.Context, sessionID string, chunkIndex int, data []byte, providedHash string, now time.Time) (result ChunkResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "upload.Chunk")
	defer func() {
		tracing.RecordError(ctx, err)
		span.End()
	}()

	session, err := e.resolveSession(ctx, sessionID, now)
	if err != nil {
		return ChunkResult{}, err
	}
	if chunkIndex < 0 || chunkIndex >= session.TotalChunks {
		return ChunkResult{}, cerrors.New(cerrors.CodeChunkValidation, "chunk index out of range")
	}

	member := strconv.Itoa(chunkIndex)
	alreadyInCache, _ := e.volat.SIsMember(ctx, chunkSetKey(sessionID), member)
	if alreadyInCache || session.HasChunk(chunkIndex) {
		return ChunkResult{AlreadyUploaded: true, CompletedChunks: len(session.CompletedChunks), TotalChunks: session.TotalChunks}, nil
	}

	expected := expectedChunkSize(session, chunkIndex)
	if int64(len(data)) != expected {
		return ChunkResult{}, cerrors.New(cerrors.CodeChunkValidation, "chunk size does not match expected size").
			WithContext(map[string]any{"chunkIndex": chunkIndex, "expected": expected, "actual": len(data)})
	}

	sum := md5.Sum(data)
	hash := hex.EncodeToString(sum[:])
	if providedHash != "" && subtle.ConstantTimeCompare([]byte(providedHash), []byte(hash)) != 1 {
		return ChunkResult{}, cerrors.New(cerrors.CodeChunkValidation, "chunk hash mismatch").
			WithContext(map[string]any{"chunkIndex": chunkIndex})
	}

	if err := e.blocks.WriteChunk(ctx, sessionID, chunkIndex, data); err != nil {
		return ChunkResult{}, cerrors.Wrap(cerrors.CodeStorageError, "failed to write chunk", err)
	}

	_ = e.volat.SAdd(ctx, chunkSetKey(sessionID), member)
	_ = e.volat.Expire(ctx, chunkSetKey(sessionID), e.cfg.SessionTTL)

	session.CompletedChunks = append(session.CompletedChunks, models.CompletedChunk{
		Index: chunkIndex, Size: int64(len(data)), Hash: hash, CompletedAt: now,
	})
	session.Status = models.SessionUploading
	session.LastActivityAt = now

	if err := e.store.UpdateUploadSession(ctx, session); err != nil {
		return ChunkResult{}, err
	}
	_ = e.volat.SetJSON(ctx, sessionCacheKey(sessionID), session, e.cfg.SessionTTL)

	return ChunkResult{CompletedChunks: len(session.CompletedChunks), TotalChunks: session.TotalChunks}, nil
}

func expectedChunkSize(session *models.UploadSession, index int) int64 {
	if index == session.TotalChunks-1 {
		if rem := session.TotalSize % session.ChunkSize; rem != 0 {
			return rem
		}
	}
	return session.ChunkSize
}

// StatusResult is returned by Status and Resume.
type StatusResult struct {
	Session         *models.UploadSession
	TotalChunks     int
	CompletedChunks int
	RemainingChunks []int
	Progress        float64
}

// Status reports a session's chunk-ingest progress.
func (e *Engine) Status(ctx context.Context, sessionID string, now time.Time) (StatusResult, error) {
	session, err := e.resolveSession(ctx, sessionID, now)
	if err != nil {
		return StatusResult{}, err
	}
	return buildStatus(session), nil
}

func buildStatus(session *models.UploadSession) StatusResult {
	var remaining []int
	for i := 0; i < session.TotalChunks; i++ {
		if !session.HasChunk(i) {
			remaining = append(remaining, i)
		}
	}
	progress := 0.0
	if session.TotalChunks > 0 {
		progress = float64(len(session.CompletedChunks)) / float64(session.TotalChunks)
	}
	return StatusResult{
		Session:         session,
		TotalChunks:     session.TotalChunks,
		CompletedChunks: len(session.CompletedChunks),
		RemainingChunks: remaining,
		Progress:        progress,
	}
}

// ResumeResult extends StatusResult with the upload URLs a client needs to
// continue without remembering them.
type ResumeResult struct {
	StatusResult
	UploadURLs []string
}

// Resume returns status plus synthesized upload URLs, for a client that
// lost its local session state.
func (e *Engine) Resume(ctx context.Context, sessionID, userID string, now time.Time) (ResumeResult, error) {
	status, err := e.Status(ctx, sessionID, now)
	if err != nil {
		return ResumeResult{}, err
	}
	if status.Session.UserID != userID {
		return ResumeResult{}, cerrors.New(cerrors.CodeAuthorization, "session does not belong to user")
	}
	return ResumeResult{StatusResult: status, UploadURLs: synthesizeUploadURLs(sessionID, status.TotalChunks)}, nil
}

// Abort cancels sessionID, discarding any staged chunks. Idempotent: an
// unknown session is treated as already aborted.
func (e *Engine) Abort(ctx context.Context, sessionID, userID string, now time.Time) error {
	session, err := e.store.GetUploadSession(ctx, sessionID)
	if err != nil {
		if cerrors.CodeOf(err) == cerrors.CodeNotFound {
			return nil
		}
		return err
	}
	if session.UserID != userID {
		return cerrors.New(cerrors.CodeAuthorization, "session does not belong to user")
	}

	if err := e.blocks.DeleteChunks(ctx, sessionID); err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "failed to discard staged chunks", err)
	}

	session.Status = models.SessionFailed
	session.ErrorCode = "ABORTED"
	session.LastActivityAt = now
	if err := e.store.UpdateUploadSession(ctx, session); err != nil {
		return err
	}
	_ = e.volat.Delete(ctx, sessionCacheKey(sessionID))
	_ = e.volat.Delete(ctx, chunkSetKey(sessionID))

	e.sink.Emit(ctx, events.Event{Name: "upload.aborted", At: now, UserID: userID, SessionID: sessionID})
	return nil
}

// Complete finalizes sessionID: assembles the blob, verifies its hash, and
// creates the durable File record.
func (e *Engine) Complete(ctx context.Context, sessionID, userID string, now time.Time) (completed *models.File, err error) {
	ctx, span := tracing.StartSpan(ctx, "upload.Complete")
	defer func() {
		tracing.RecordError(ctx, err)
		span.End()
	}()

	session, err := e.store.GetUploadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, cerrors.New(cerrors.CodeAuthorization, "session does not belong to user")
	}
	if len(session.CompletedChunks) != session.TotalChunks {
		return nil, cerrors.New(cerrors.CodeUploadIncomplete, "not all chunks have been uploaded").
			WithContext(map[string]any{"completed": len(session.CompletedChunks), "total": session.TotalChunks})
	}
	if !models.CanTransition(session.Status, models.SessionAssembling) {
		return nil, cerrors.New(cerrors.CodeConflict, "session is not ready to assemble").
			WithContext(map[string]any{"status": session.Status})
	}

	session.Status = models.SessionAssembling
	session.LastActivityAt = now
	if err := e.store.UpdateUploadSession(ctx, session); err != nil {
		return nil, err
	}

	storageKey := generateStorageKey(userID, session.Filename, now.UnixMilli())
	result, err := e.blocks.AssembleChunks(ctx, sessionID, storageKey, session.TotalChunks, storage.TierHot)
	if err != nil {
		e.failSession(ctx, session, "STORAGE_ERROR", now)
		return nil, cerrors.Wrap(cerrors.CodeStorageError, "failed to assemble chunks", err)
	}

	if session.ExpectedHash != "" && session.ExpectedHash != result.Hash {
		_ = e.blocks.Delete(ctx, storageKey, storage.TierHot)
		e.failSession(ctx, session, "HASH_MISMATCH", now)
		return nil, cerrors.New(cerrors.CodeHashMismatch, "assembled file hash does not match expected hash")
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var expiresAt *time.Time
	if user.Role != models.RolePremium && user.Role != models.RoleAdmin {
		exp := now.AddDate(0, 0, e.cfg.ExpiryDaysFree)
		expiresAt = &exp
	}

	file := &models.File{
		UserID:       userID,
		FolderID:     session.FolderID,
		StorageKey:   storageKey,
		OriginalName: session.Filename,
		MimeType:     session.MimeType,
		Size:         result.Size,
		Hash:         result.Hash,
		StorageTier:  models.TierHot,
		LastAccessAt: now,
		ExpiresAt:    expiresAt,
	}
	fileID, err := e.store.CreateFile(ctx, file)
	if err != nil {
		return nil, err
	}
	file.ID = fileID

	if err := e.quota.AddFile(ctx, userID, result.Size); err != nil {
		return nil, err
	}

	session.Status = models.SessionCompleted
	session.FileID = &fileID
	session.CompletedAt = &now
	session.LastActivityAt = now
	if err := e.store.UpdateUploadSession(ctx, session); err != nil {
		return nil, err
	}
	_ = e.volat.Delete(ctx, sessionCacheKey(sessionID))
	_ = e.volat.Delete(ctx, chunkSetKey(sessionID))
	_ = e.blocks.DeleteChunks(ctx, sessionID)

	e.sink.Emit(ctx, events.Event{Name: "upload.completed", At: now, UserID: userID, FileID: fileID, SessionID: sessionID,
		Fields: map[string]any{"size": result.Size}})

	return file, nil
}

func (e *Engine) failSession(ctx context.Context, session *models.UploadSession, errorCode string, now time.Time) {
	session.Status = models.SessionFailed
	session.ErrorCode = errorCode
	session.LastActivityAt = now
	_ = e.store.UpdateUploadSession(ctx, session)
	_ = e.volat.Delete(ctx, sessionCacheKey(session.SessionID))

	e.sink.Emit(ctx, events.Event{Name: "upload.failed", At: now, UserID: session.UserID, SessionID: session.SessionID,
		Fields: map[string]any{"errorCode": errorCode}})
}
