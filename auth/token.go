// Package auth issues and validates the JWT tokens protecting the admin
// endpoints, and holds the static user table.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role,omitempty"`
	TokenType string `json:"type"`
}

// Manager signs and validates tokens with a shared HMAC secret.
type Manager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewManager builds a token manager. Expiries apply to access and refresh
// tokens respectively.
func NewManager(secret []byte, accessExpiry, refreshExpiry time.Duration) *Manager {
	return &Manager{
		secret:        secret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// AccessExpiry returns the configured access token lifetime.
func (m *Manager) AccessExpiry() time.Duration {
	return m.accessExpiry
}

// AccessToken creates a signed access token for a user and role.
func (m *Manager) AccessToken(username, role string) (string, error) {
	return m.sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: username},
		Role:             role,
		TokenType:        TokenTypeAccess,
	}, m.accessExpiry)
}

// RefreshToken creates a signed refresh token for a user.
func (m *Manager) RefreshToken(username string) (string, error) {
	return m.sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: username},
		TokenType:        TokenTypeRefresh,
	}, m.refreshExpiry)
}

func (m *Manager) sign(claims *Claims, expiry time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(expiry))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a token, checks its signature and expiry, and requires
// the given token type. The signing method is pinned to HS256 to prevent
// algorithm confusion attacks.
func (m *Manager) Validate(tokenStr, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v (only HS256 allowed)", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("token type %q, want %q", claims.TokenType, tokenType)
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}
