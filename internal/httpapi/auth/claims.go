// Package auth is the adapter-side Bearer-token authenticator: it issues
// and verifies JWTs and turns a validated token into the Principal value
// the core engines consume. The core itself never imports this package.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vaultfs/vaultfs/internal/models"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token has expired")
	ErrInvalidTokenType    = errors.New("invalid token type")
	ErrTokenSigningFailed  = errors.New("failed to sign token")
	ErrInvalidSecretLength = errors.New("jwt secret must be at least 32 characters")
)

// Claims are the JWT claims vaultfs issues.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string       `json:"uid"`
	Role      models.Role  `json:"role"`
	TokenType TokenType    `json:"token_type"`
}

// IsAccessToken reports whether these claims were issued as an access token.
func (c *Claims) IsAccessToken() bool { return c.TokenType == TokenTypeAccess }

// IsRefreshToken reports whether these claims were issued as a refresh token.
func (c *Claims) IsRefreshToken() bool { return c.TokenType == TokenTypeRefresh }

// Principal converts validated claims into the core's Principal value.
func (c *Claims) Principal() models.Principal {
	return models.Principal{UserID: c.UserID, Role: c.Role}
}

// Config configures JWT issuance and validation.
type Config struct {
	Secret               string
	Issuer               string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// Service issues and validates JWTs.
type Service struct {
	cfg Config
}

// NewService constructs a Service, applying defaults and validating the
// signing secret length.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "vaultfs"
	}
	if cfg.AccessTokenDuration == 0 {
		cfg.AccessTokenDuration = 15 * time.Minute
	}
	if cfg.RefreshTokenDuration == 0 {
		cfg.RefreshTokenDuration = 7 * 24 * time.Hour
	}
	return &Service{cfg: cfg}, nil
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// GenerateTokenPair issues a fresh access/refresh token pair for userID/role.
func (s *Service) GenerateTokenPair(userID string, role models.Role) (*TokenPair, error) {
	now := time.Now()
	accessExpiry := now.Add(s.cfg.AccessTokenDuration)
	refreshExpiry := now.Add(s.cfg.RefreshTokenDuration)

	access, err := s.generateToken(userID, role, TokenTypeAccess, now, accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.generateToken(userID, role, TokenTypeRefresh, now, refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTokenDuration.Seconds()),
		ExpiresAt:    accessExpiry,
	}, nil
}

func (s *Service) generateToken(userID string, role models.Role, tokenType TokenType, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    userID,
		Role:      role,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", ErrTokenSigningFailed
	}
	return signed, nil
}

// ValidateToken parses and verifies tokenString, regardless of token type.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccessToken validates tokenString and requires it be an access token.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.IsAccessToken() {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}

// ValidateRefreshToken validates tokenString and requires it be a refresh token.
func (s *Service) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken() {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}
