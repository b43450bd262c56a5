package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/accounts"
	"github.com/vaultfs/vaultfs/internal/httpapi/auth"
	"github.com/vaultfs/vaultfs/internal/models"
)

// fakeUserStore is a minimal in-memory userStore, structurally satisfying
// the unexported interface accounts.New expects.
type fakeUserStore struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[string]*models.User{}, byEmail: map[string]*models.User{}}
}

func (s *fakeUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, notFoundErr
	}
	return u, nil
}

func (s *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, notFoundErr
	}
	return u, nil
}

func (s *fakeUserStore) CreateUser(ctx context.Context, u *models.User) (string, error) {
	u.ID = "u-" + u.Email
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u
	return u.ID, nil
}

func (s *fakeUserStore) UpdateUser(ctx context.Context, u *models.User) error {
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u
	return nil
}

func (s *fakeUserStore) DeleteUser(ctx context.Context, id string) error {
	if u, ok := s.byID[id]; ok {
		delete(s.byEmail, u.Email)
	}
	delete(s.byID, id)
	return nil
}

type notFound struct{}

func (notFound) Error() string { return "not found" }

var notFoundErr error = notFound{}

func testRouter(t *testing.T) (http.Handler, *accounts.Service) {
	t.Helper()
	store := newFakeUserStore()
	acctSvc := accounts.New(store)
	jwtSvc, err := auth.NewService(auth.Config{Secret: strings.Repeat("x", 32)})
	require.NoError(t, err)

	router := NewRouter(Dependencies{Accounts: acctSvc, AuthSvc: jwtSvc})
	return router, acctSvc
}

func TestLoginMeRoundTrip(t *testing.T) {
	router, acctSvc := testRouter(t)
	_, err := acctSvc.Register(context.Background(), "alice@example.com", "correct-horse", models.RoleFree)
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	defer srv.Close()

	loginBody := strings.NewReader(`{"email":"alice@example.com","password":"correct-horse"}`)
	resp, err := http.Post(srv.URL+"/api/v1/auth/login", "application/json", loginBody)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokens tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	assert.NotEmpty(t, tokens.AccessToken)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router, acctSvc := testRouter(t)
	_, err := acctSvc.Register(context.Background(), "bob@example.com", "correct-horse", models.RoleFree)
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/auth/login", "application/json",
		strings.NewReader(`{"email":"bob@example.com","password":"wrong"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeRejectsMissingToken(t *testing.T) {
	router, _ := testRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	router, _ := testRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
