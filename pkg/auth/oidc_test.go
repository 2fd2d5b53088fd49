package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holt/pkg/config"
)

// fakeProvider is an httptest identity provider serving discovery, JWKS
// and token endpoints backed by a throwaway RSA key.
type fakeProvider struct {
	server  *httptest.Server
	key     *rsa.PrivateKey
	kid     string
	idToken string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &fakeProvider{key: key, kid: "test-key"}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 p.server.URL,
			"authorization_endpoint": p.server.URL + "/authorize",
			"token_endpoint":         p.server.URL + "/token",
			"jwks_uri":               p.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": p.kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x00, 0x01}),
			}},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("code") != "good-code" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id_token": p.idToken})
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) config() config.OIDC {
	return config.OIDC{
		ClientID:     "holt-client",
		ClientSecret: "holt-secret",
		WellKnownURL: p.server.URL + "/.well-known/openid-configuration",
		Algorithms:   []string{"RS256"},
	}
}

// sign produces an RS256 id token with the given claims.
func (p *fakeProvider) sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = p.kid
	signed, err := token.SignedString(p.key)
	require.NoError(t, err)
	return signed
}

func identityClaims(email string) *IdentityClaims {
	return &IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "idp-subject",
			Audience:  jwt.ClaimStrings{"holt-client"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email:             email,
		PreferredUsername: "ada",
	}
}

func TestVerifyIDToken(t *testing.T) {
	idp := newFakeProvider(t)
	provider := NewOIDCProvider(idp.config())

	raw := idp.sign(t, identityClaims("ada@example.com"))

	claims, err := provider.VerifyIDToken(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "ada", claims.UsernameHint())
}

func TestVerifyIDTokenWrongAudience(t *testing.T) {
	idp := newFakeProvider(t)
	provider := NewOIDCProvider(idp.config())

	claims := identityClaims("ada@example.com")
	claims.Audience = jwt.ClaimStrings{"somebody-else"}
	raw := idp.sign(t, claims)

	_, err := provider.VerifyIDToken(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, errdefs.IsUnauthorized(err))
}

func TestVerifyIDTokenExpired(t *testing.T) {
	idp := newFakeProvider(t)
	provider := NewOIDCProvider(idp.config())

	claims := identityClaims("ada@example.com")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	raw := idp.sign(t, claims)

	_, err := provider.VerifyIDToken(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, errdefs.IsUnauthorized(err))
}

func TestVerifyIDTokenUnknownKid(t *testing.T) {
	idp := newFakeProvider(t)
	provider := NewOIDCProvider(idp.config())

	idp.kid = "rotated-away"
	raw := idp.sign(t, identityClaims("ada@example.com"))
	idp.kid = "test-key"

	_, err := provider.VerifyIDToken(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, errdefs.IsUnauthorized(err))
}

func TestVerifyIDTokenMissingEmail(t *testing.T) {
	idp := newFakeProvider(t)
	provider := NewOIDCProvider(idp.config())

	raw := idp.sign(t, identityClaims(""))

	_, err := provider.VerifyIDToken(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, errdefs.IsUnauthorized(err))
}

func TestVerifyIDTokenForeignKey(t *testing.T) {
	idp := newFakeProvider(t)
	provider := NewOIDCProvider(idp.config())

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, identityClaims("ada@example.com"))
	token.Header["kid"] = idp.kid
	raw, err := token.SignedString(other)
	require.NoError(t, err)

	_, err = provider.VerifyIDToken(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, errdefs.IsUnauthorized(err))
}

func TestAuthCodeURL(t *testing.T) {
	idp := newFakeProvider(t)
	provider := NewOIDCProvider(idp.config())

	raw, err := provider.AuthCodeURL(context.Background(), "http://localhost:8100/login/complete", "state-1")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", parsed.Path)
	assert.Equal(t, "code", parsed.Query().Get("response_type"))
	assert.Equal(t, "holt-client", parsed.Query().Get("client_id"))
	assert.Equal(t, "http://localhost:8100/login/complete", parsed.Query().Get("redirect_uri"))
	assert.Equal(t, "openid email profile", parsed.Query().Get("scope"))
	assert.Equal(t, "state-1", parsed.Query().Get("state"))
}

func TestExchange(t *testing.T) {
	idp := newFakeProvider(t)
	provider := NewOIDCProvider(idp.config())
	idp.idToken = "signed-id-token"

	raw, err := provider.Exchange(context.Background(), "good-code", "http://localhost:8100/login/complete")
	require.NoError(t, err)
	assert.Equal(t, "signed-id-token", raw)
}

func TestExchangeRejectedCode(t *testing.T) {
	idp := newFakeProvider(t)
	provider := NewOIDCProvider(idp.config())

	_, err := provider.Exchange(context.Background(), "bad-code", "http://localhost:8100/login/complete")
	require.Error(t, err)
}

func TestUsernameHint(t *testing.T) {
	tests := []struct {
		name   string
		claims IdentityClaims
		want   string
	}{
		{
			name:   "preferred username wins",
			claims: IdentityClaims{PreferredUsername: "ada", Nickname: "al", Email: "ada@example.com"},
			want:   "ada",
		},
		{
			name:   "nickname next",
			claims: IdentityClaims{Nickname: "al", Email: "ada@example.com"},
			want:   "al",
		},
		{
			name:   "email local part",
			claims: IdentityClaims{Email: "ada.lovelace@example.com"},
			want:   "ada.lovelace",
		},
		{
			name:   "bare email",
			claims: IdentityClaims{Email: "ada"},
			want:   "ada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.UsernameHint())
		})
	}
}
