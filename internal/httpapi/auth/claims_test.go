package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultfs/vaultfs/internal/models"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func TestNewServiceRejectsShortSecret(t *testing.T) {
	_, err := NewService(Config{Secret: "short"})
	require.ErrorIs(t, err, ErrInvalidSecretLength)
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret, AccessTokenDuration: time.Minute})
	require.NoError(t, err)

	pair, err := svc.GenerateTokenPair("user-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, models.Principal{UserID: "user-1", Role: models.RoleAdmin}, claims.Principal())
}

func TestValidateAccessTokenRejectsRefreshToken(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)

	pair, err := svc.GenerateTokenPair("user-1", models.RoleFree)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret, AccessTokenDuration: -time.Minute})
	require.NoError(t, err)

	pair, err := svc.GenerateTokenPair("user-1", models.RoleFree)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrExpiredToken)
}
