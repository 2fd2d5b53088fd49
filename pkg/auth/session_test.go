package auth

import (
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holt/pkg/types"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	user := &types.User{
		ID:       "user-1",
		Username: "ada",
		Email:    "ada@example.com",
	}

	token, err := NewSessionToken("topsecret", user, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseSessionToken("topsecret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestSessionTokenWrongSecret(t *testing.T) {
	user := &types.User{ID: "user-1", Username: "ada"}

	token, err := NewSessionToken("topsecret", user, time.Now())
	require.NoError(t, err)

	_, err = ParseSessionToken("othersecret", token)
	require.Error(t, err)
	assert.True(t, errdefs.IsUnauthorized(err))
}

func TestSessionTokenExpired(t *testing.T) {
	user := &types.User{ID: "user-1", Username: "ada"}

	token, err := NewSessionToken("topsecret", user, time.Now().Add(-2*SessionLifetime))
	require.NoError(t, err)

	_, err = ParseSessionToken("topsecret", token)
	require.Error(t, err)
	assert.True(t, errdefs.IsUnauthorized(err))
}

func TestSessionTokenRejectsUnsignedAlgorithm(t *testing.T) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseSessionToken("topsecret", token)
	require.Error(t, err)
	assert.True(t, errdefs.IsUnauthorized(err))
}

func TestSessionTokenRejectsMissingSubject(t *testing.T) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Username: "ada",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("topsecret"))
	require.NoError(t, err)

	_, err = ParseSessionToken("topsecret", token)
	require.Error(t, err)
	assert.True(t, errdefs.IsUnauthorized(err))
}
