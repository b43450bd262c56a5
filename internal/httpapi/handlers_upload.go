package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/httpapi/auth"
	"github.com/vaultfs/vaultfs/internal/ratelimit"
	"github.com/vaultfs/vaultfs/internal/upload"
)

type uploadHandler struct {
	engine  *upload.Engine
	limiter *ratelimit.Limiter
}

func (h *uploadHandler) checkRateLimit(w http.ResponseWriter, r *http.Request, userID string) bool {
	if h.limiter == nil {
		return true
	}
	result, err := h.limiter.Check(r.Context(), ratelimit.TypeUpload, "user:"+userID, time.Now())
	if err != nil {
		return true
	}
	if !result.Allowed {
		writeError(w, cerrors.New(cerrors.CodeRateLimitExceeded, "upload rate limit exceeded").
			WithContext(map[string]any{"retryAfter": result.RetryAfter.String()}))
		return false
	}
	return true
}

type initUploadRequest struct {
	Filename     string  `json:"filename" validate:"required"`
	Size         int64   `json:"size" validate:"required,gt=0"`
	ExpectedHash string  `json:"expectedHash" validate:"omitempty,len=64,hexadecimal"`
	MimeType     string  `json:"mimeType" validate:"required"`
	FolderID     *string `json:"folderId,omitempty"`
}

// Init handles POST /api/v1/uploads.
func (h *uploadHandler) Init(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal.IsAnonymous() {
		writeError(w, cerrors.New(cerrors.CodeAuthentication, "authentication required"))
		return
	}
	if !h.checkRateLimit(w, r, principal.UserID) {
		return
	}

	var req initUploadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.engine.Init(r.Context(), principal.UserID, req.Filename, req.Size, req.ExpectedHash, req.MimeType, req.FolderID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Chunk handles PUT /api/v1/uploads/{sessionID}/chunks/{index}.
func (h *uploadHandler) Chunk(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, cerrors.New(cerrors.CodeValidation, "chunk index must be an integer"))
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, cerrors.New(cerrors.CodeValidation, "failed to read chunk body"))
		return
	}

	result, err := h.engine.Chunk(r.Context(), sessionID, index, data, r.Header.Get("X-Chunk-Hash"), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Status handles GET /api/v1/uploads/{sessionID}.
func (h *uploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	result, err := h.engine.Status(r.Context(), sessionID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Resume handles POST /api/v1/uploads/{sessionID}/resume.
func (h *uploadHandler) Resume(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")
	result, err := h.engine.Resume(r.Context(), sessionID, principal.UserID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Abort handles POST /api/v1/uploads/{sessionID}/abort.
func (h *uploadHandler) Abort(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.engine.Abort(r.Context(), sessionID, principal.UserID, time.Now()); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

// Complete handles POST /api/v1/uploads/{sessionID}/complete.
func (h *uploadHandler) Complete(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")
	file, err := h.engine.Complete(r.Context(), sessionID, principal.UserID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, file)
}
