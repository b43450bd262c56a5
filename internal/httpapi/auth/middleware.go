package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/httpapi/httperr"
	"github.com/vaultfs/vaultfs/internal/models"
)

type contextKey string

const principalContextKey contextKey = "principal"

// PrincipalFromContext retrieves the Principal stored by RequireAuth or
// OptionalAuth. Returns the zero value (anonymous) if none is present.
func PrincipalFromContext(ctx context.Context) models.Principal {
	p, ok := ctx.Value(principalContextKey).(models.Principal)
	if !ok {
		return models.Principal{}
	}
	return p
}

func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireAuth validates the Bearer token and stores the resolved Principal
// in the request context. Missing or invalid tokens are rejected with 401.
func RequireAuth(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				httperr.Write(w, cerrors.New(cerrors.CodeAuthentication, "authorization header required"))
				return
			}
			claims, err := svc.ValidateAccessToken(token)
			if err != nil {
				httperr.Write(w, cerrors.New(cerrors.CodeAuthentication, "invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), principalContextKey, claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth is like RequireAuth but lets anonymous requests through;
// downloads of public files need this since userID is optional there.
func OptionalAuth(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := svc.ValidateAccessToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), principalContextKey, claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin blocks non-admin principals. Must follow RequireAuth.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p.IsAnonymous() {
				httperr.Write(w, cerrors.New(cerrors.CodeAuthentication, "authentication required"))
				return
			}
			if !p.IsAdmin() {
				httperr.Write(w, cerrors.New(cerrors.CodeAuthorization, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
