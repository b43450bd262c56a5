package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the upload, download,
// and lifecycle subsystems. Use these keys consistently so log aggregation
// and querying stay uniform regardless of which engine emitted the line.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Request / operation identification
	KeyRequestID = "request_id"
	KeyOperation = "operation"
	KeyStatus    = "status"
	KeyStatusMsg = "status_msg"

	// Principal
	KeyUserID   = "user_id"
	KeyRole     = "role"
	KeyClientIP = "client_ip"

	// Upload session
	KeySessionID    = "session_id"
	KeyChunkIndex   = "chunk_index"
	KeyTotalChunks  = "total_chunks"
	KeyChunkSize    = "chunk_size"
	KeyUploadStatus = "upload_status"

	// Files / folders
	KeyFileID     = "file_id"
	KeyFolderID   = "folder_id"
	KeyFilename   = "filename"
	KeyPath       = "path"
	KeyStorageKey = "storage_key"
	KeyTier       = "tier"
	KeySize       = "size"
	KeyMimeType   = "mime_type"

	// I/O
	KeyOffset       = "offset"
	KeyRangeStart   = "range_start"
	KeyRangeEnd     = "range_end"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"

	// Errors & retries
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeyAttempt    = "attempt"
	KeyMaxRetries = "max_retries"

	// Storage backend / archive mirror
	KeyBucket = "bucket"
	KeyRegion = "region"

	// Cache / volatile store
	KeyCacheHit = "cache_hit"

	// Batched lifecycle workers
	KeyBatchSize   = "batch_size"
	KeyProcessed   = "processed"
	KeyFailed      = "failed"
	KeyWorkerName  = "worker"
	KeyQuotaLimit  = "quota_limit"
	KeyQuotaUsage  = "quota_usage"
	KeyRetryAfterS = "retry_after_seconds"
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// RequestID returns a slog.Attr for the adapter-assigned request ID
func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }

// Operation returns a slog.Attr naming the operation being performed
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Status returns a slog.Attr for an HTTP-analog status code
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }

// StatusMsg returns a slog.Attr for a human-readable status message
func StatusMsg(msg string) slog.Attr { return slog.String(KeyStatusMsg, msg) }

// UserID returns a slog.Attr for the authenticated principal's user ID
func UserID(id string) slog.Attr { return slog.String(KeyUserID, id) }

// Role returns a slog.Attr for the principal's role
func Role(role string) slog.Attr { return slog.String(KeyRole, role) }

// ClientIP returns a slog.Attr for the caller's IP address
func ClientIP(addr string) slog.Attr { return slog.String(KeyClientIP, addr) }

// SessionID returns a slog.Attr for an upload session ID
func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }

// ChunkIndex returns a slog.Attr for a chunk's index within a session
func ChunkIndex(i int) slog.Attr { return slog.Int(KeyChunkIndex, i) }

// TotalChunks returns a slog.Attr for a session's total chunk count
func TotalChunks(n int) slog.Attr { return slog.Int(KeyTotalChunks, n) }

// ChunkSize returns a slog.Attr for the configured chunk size in bytes
func ChunkSize(n int64) slog.Attr { return slog.Int64(KeyChunkSize, n) }

// UploadStatus returns a slog.Attr for an UploadSession's status
func UploadStatus(s string) slog.Attr { return slog.String(KeyUploadStatus, s) }

// FileID returns a slog.Attr for a File record's ID
func FileID(id string) slog.Attr { return slog.String(KeyFileID, id) }

// FolderID returns a slog.Attr for a Folder record's ID
func FolderID(id string) slog.Attr { return slog.String(KeyFolderID, id) }

// Filename returns a slog.Attr for a file's display name
func Filename(name string) slog.Attr { return slog.String(KeyFilename, name) }

// Path returns a slog.Attr for a folder path
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// StorageKey returns a slog.Attr for the opaque blob key on disk
func StorageKey(key string) slog.Attr { return slog.String(KeyStorageKey, key) }

// Tier returns a slog.Attr for the storage tier ("hot" or "cold")
func Tier(tier string) slog.Attr { return slog.String(KeyTier, tier) }

// Size returns a slog.Attr for a byte size
func Size(n int64) slog.Attr { return slog.Int64(KeySize, n) }

// MimeType returns a slog.Attr for a file's MIME type
func MimeType(mt string) slog.Attr { return slog.String(KeyMimeType, mt) }

// Offset returns a slog.Attr for a byte offset
func Offset(n int64) slog.Attr { return slog.Int64(KeyOffset, n) }

// RangeStart returns a slog.Attr for the start of a byte range
func RangeStart(n int64) slog.Attr { return slog.Int64(KeyRangeStart, n) }

// RangeEnd returns a slog.Attr for the end of a byte range
func RangeEnd(n int64) slog.Attr { return slog.Int64(KeyRangeEnd, n) }

// BytesRead returns a slog.Attr for the number of bytes read
func BytesRead(n int64) slog.Attr { return slog.Int64(KeyBytesRead, n) }

// BytesWritten returns a slog.Attr for the number of bytes written
func BytesWritten(n int64) slog.Attr { return slog.Int64(KeyBytesWritten, n) }

// DurationMs returns a slog.Attr for an operation's duration in milliseconds
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error value, or a no-op attr if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a taxonomy error code
func ErrorCode(code string) slog.Attr { return slog.String(KeyErrorCode, code) }

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// MaxRetries returns a slog.Attr for the maximum retry count
func MaxRetries(n int) slog.Attr { return slog.Int(KeyMaxRetries, n) }

// Bucket returns a slog.Attr for an S3-compatible bucket name
func Bucket(name string) slog.Attr { return slog.String(KeyBucket, name) }

// Region returns a slog.Attr for a cloud region
func Region(r string) slog.Attr { return slog.String(KeyRegion, r) }

// CacheHit returns a slog.Attr indicating whether a cache lookup hit
func CacheHit(hit bool) slog.Attr { return slog.Bool(KeyCacheHit, hit) }

// BatchSize returns a slog.Attr for a worker's configured batch size
func BatchSize(n int) slog.Attr { return slog.Int(KeyBatchSize, n) }

// Processed returns a slog.Attr for the number of items a worker processed
func Processed(n int) slog.Attr { return slog.Int(KeyProcessed, n) }

// Failed returns a slog.Attr for the number of items a worker failed to process
func Failed(n int) slog.Attr { return slog.Int(KeyFailed, n) }

// WorkerName returns a slog.Attr naming a lifecycle worker
func WorkerName(name string) slog.Attr { return slog.String(KeyWorkerName, name) }

// QuotaLimit returns a slog.Attr for a quota limit value
func QuotaLimit(n int64) slog.Attr { return slog.Int64(KeyQuotaLimit, n) }

// QuotaUsage returns a slog.Attr for a quota usage value
func QuotaUsage(n int64) slog.Attr { return slog.Int64(KeyQuotaUsage, n) }

// RetryAfterSeconds returns a slog.Attr for a rate-limit retry-after value
func RetryAfterSeconds(n int) slog.Attr { return slog.Int(KeyRetryAfterS, n) }
