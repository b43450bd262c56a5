package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for an upload or download
// call chain: a request ID from the adapter layer, the resolved principal,
// and identifiers for whatever session/file the call is operating on.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	RequestID string    // adapter-assigned request ID
	Operation string    // "upload.chunk", "download.range", "lifecycle.expiry", ...
	UserID    string    // authenticated principal, or "system" for worker-driven calls
	SessionID string    // UploadSession ID, when applicable
	FileID    string    // File ID, when applicable
	ClientIP  string    // client IP address (without port), when known
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		RequestID: lc.RequestID,
		Operation: lc.Operation,
		UserID:    lc.UserID,
		SessionID: lc.SessionID,
		FileID:    lc.FileID,
		ClientIP:  lc.ClientIP,
		StartTime: lc.StartTime,
	}
}

// WithOperation returns a copy with the operation name set
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithUser returns a copy with the principal's user ID set
func (lc *LogContext) WithUser(userID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.UserID = userID
	}
	return clone
}

// WithSession returns a copy with the upload session ID set
func (lc *LogContext) WithSession(sessionID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SessionID = sessionID
	}
	return clone
}

// WithFile returns a copy with the file ID set
func (lc *LogContext) WithFile(fileID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.FileID = fileID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
