package httpapi

import (
	"net/http"
	"time"

	"github.com/vaultfs/vaultfs/internal/accounts"
	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/httpapi/auth"
)

type authHandler struct {
	accounts *accounts.Service
	jwt      *auth.Service
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.ValidateCredentials(r.Context(), req.Email, req.Password, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.jwt.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		writeError(w, cerrors.Wrap(cerrors.CodeInternal, "failed to issue token", err))
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken,
		TokenType: pair.TokenType, ExpiresIn: pair.ExpiresIn, ExpiresAt: pair.ExpiresAt,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *authHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		writeError(w, cerrors.New(cerrors.CodeAuthentication, "invalid or expired refresh token"))
		return
	}

	user, err := h.accounts.Get(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !user.IsActive {
		writeError(w, cerrors.New(cerrors.CodeAuthorization, "account is disabled"))
		return
	}

	pair, err := h.jwt.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		writeError(w, cerrors.Wrap(cerrors.CodeInternal, "failed to issue token", err))
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken,
		TokenType: pair.TokenType, ExpiresIn: pair.ExpiresIn, ExpiresAt: pair.ExpiresAt,
	})
}

// Me handles GET /api/v1/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal.IsAnonymous() {
		writeError(w, cerrors.New(cerrors.CodeAuthentication, "authentication required"))
		return
	}
	user, err := h.accounts.Get(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id": user.ID, "email": user.Email, "role": user.Role, "is_active": user.IsActive,
	})
}
