package auth

import (
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/golang-jwt/jwt/v5"

	"github.com/cuemby/holt/pkg/types"
)

// SessionCookie is the cookie name carrying the session token.
const SessionCookie = "session"

// SessionLifetime bounds how long a browser login stays valid.
const SessionLifetime = 24 * time.Hour

// SessionClaims is the broker-issued session token payload.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
}

// NewSessionToken issues an HS256 session token for a logged-in user,
// signed with the deployment secret.
func NewSessionToken(secret string, user *types.User, now time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionLifetime)),
		},
		Username: user.Username,
		Email:    user.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates a session token and returns its claims.
func ParseSessionToken(secret, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %v: %w", err, errdefs.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("session token missing subject: %w", errdefs.ErrUnauthenticated)
	}
	return claims, nil
}
