package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fleet-records-backend/internal/model"
)

// TokenType distinguishes the short-lived access token from the refresh
// token; a refresh token must never authenticate a request directly.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Cookie names used by the API layer.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Claims carries the authenticated identity inside a signed token.
type Claims struct {
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	TokenType TokenType  `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager issues and validates HS256-signed tokens.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager creates a token manager with the given signing secret and
// lifetimes for the two token types.
func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessToken issues a short-lived access token for user.
func (m *Manager) AccessToken(user *model.User) (string, error) {
	return m.issue(user, TokenAccess, m.accessTTL)
}

// RefreshToken issues a long-lived refresh token for user.
func (m *Manager) RefreshToken(user *model.User) (string, error) {
	return m.issue(user, TokenRefresh, m.refreshTTL)
}

func (m *Manager) issue(user *model.User, typ TokenType, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString and checks it is of the expected type.
func (m *Manager) Parse(tokenString string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.TokenType != expected {
		return nil, fmt.Errorf("expected %s token, got %s", expected, claims.TokenType)
	}
	return claims, nil
}
