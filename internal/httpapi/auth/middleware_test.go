package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/httpapi/httperr"
	"github.com/vaultfs/vaultfs/internal/models"
)

func noopHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthRejectsMissingTokenWithErrorEnvelope(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	RequireAuth(svc)(noopHandler()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var env httperr.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "AUTHENTICATION_ERROR", env.Error.Code)
	assert.Equal(t, http.StatusUnauthorized, env.Error.StatusCode)
}

func TestRequireAuthRejectsInvalidTokenWithErrorEnvelope(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer not-a-real-token")
	RequireAuth(svc)(noopHandler()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var env httperr.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "AUTHENTICATION_ERROR", env.Error.Code)
}

func TestRequireAdminRejectsNonAdminWithErrorEnvelope(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)
	pair, err := svc.GenerateTokenPair("user-1", models.RoleFree)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	handler := RequireAuth(svc)(RequireAdmin()(noopHandler()))
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var env httperr.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "AUTHORIZATION_ERROR", env.Error.Code)
}
