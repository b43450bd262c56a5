package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/download"
	"github.com/vaultfs/vaultfs/internal/httpapi/auth"
	"github.com/vaultfs/vaultfs/internal/ratelimit"
)

type downloadHandler struct {
	engine  *download.Engine
	limiter *ratelimit.Limiter
}

// Get handles GET /api/v1/files/{fileID}. Authentication is optional —
// public and password-protected files are reachable anonymously, subject
// to AccessPolicy.
func (h *downloadHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	identifier := "ip:" + r.RemoteAddr
	if !principal.IsAnonymous() {
		identifier = "user:" + principal.UserID
	}
	if h.limiter != nil {
		result, err := h.limiter.Check(r.Context(), ratelimit.TypeDownload, identifier, time.Now())
		if err == nil && !result.Allowed {
			writeError(w, cerrors.New(cerrors.CodeRateLimitExceeded, "download rate limit exceeded").
				WithContext(map[string]any{"retryAfter": result.RetryAfter.String()}))
			return
		}
	}

	fileID := chi.URLParam(r, "fileID")
	password := r.URL.Query().Get("password")

	result, err := h.engine.Prepare(r.Context(), fileID, principal.UserID, password, r.Header.Get("Range"), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	defer result.Body.Close()

	headers := w.Header()
	headers.Set("Content-Type", result.ContentType)
	headers.Set("Content-Disposition", result.Disposition)
	headers.Set("ETag", result.ETag)
	headers.Set("Cache-Control", result.CacheControl)
	if result.AcceptRange {
		headers.Set("Accept-Ranges", "bytes")
	}
	if result.Range != nil {
		headers.Set("Content-Range", "bytes "+strconv.FormatInt(result.Range.Start, 10)+"-"+
			strconv.FormatInt(result.Range.End, 10)+"/"+strconv.FormatInt(result.TotalSize, 10))
	}
	headers.Set("Content-Length", strconv.FormatInt(result.Length, 10))

	w.WriteHeader(result.StatusCode)
	_, _ = io.Copy(w, result.Body)
}
