// Package auth issues and verifies bearer session tokens for the API.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/portpilot/portpilot/internal/models"
)

const tokenTTL = 24 * time.Hour

// Session identifies the authenticated caller of an API request.
type Session struct {
	UserID string
	Handle string
	Role   models.Role
}

// Manager signs and verifies session tokens with an HMAC secret.
type Manager struct {
	secret []byte
}

// NewManager creates a Manager with the given signing secret.
func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// IssueToken returns a signed session token for the user.
func (m *Manager) IssueToken(u *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    u.ID,
		"handle": u.Handle,
		"role":   string(u.Role),
		"iss":    "portpilot",
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(m.secret)
}

// VerifyToken validates a token string and returns its session.
func (m *Manager) VerifyToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	handle, _ := claims["handle"].(string)
	role, _ := claims["role"].(string)

	return &Session{
		UserID: sub,
		Handle: handle,
		Role:   models.Role(role),
	}, nil
}

// FromRequest extracts and verifies the bearer token of a request.
func (m *Manager) FromRequest(r *http.Request) (*Session, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("missing Authorization header")
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header {
		return nil, fmt.Errorf("malformed Authorization header")
	}
	return m.VerifyToken(tokenString)
}
