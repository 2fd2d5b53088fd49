package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"

	"github.com/cuemby/holt/pkg/config"
	"github.com/cuemby/holt/pkg/log"
)

const (
	discoveryCacheKey = "discovery"
	jwkCachePrefix    = "jwk:"
)

// discovery is the subset of the OIDC well-known document the broker uses.
type discovery struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// jwk is a single JSON Web Key as served by the provider's JWKS endpoint.
// Only RSA keys are supported.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// IdentityClaims are the claims the broker reads off a verified id token.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Nickname          string `json:"nickname"`
	Name              string `json:"name"`
}

// UsernameHint returns the best available handle for provisioning a user.
func (c *IdentityClaims) UsernameHint() string {
	switch {
	case c.PreferredUsername != "":
		return c.PreferredUsername
	case c.Nickname != "":
		return c.Nickname
	default:
		// Fall back to the email local part.
		if i := strings.IndexByte(c.Email, '@'); i > 0 {
			return c.Email[:i]
		}
		return c.Email
	}
}

// OIDCProvider verifies browser logins against an external identity
// provider. The well-known document and the signing keys are cached with a
// TTL so token verification normally costs no network round trips.
type OIDCProvider struct {
	cfg    config.OIDC
	client *http.Client
	cache  *gocache.Cache
}

// NewOIDCProvider creates a provider from configuration.
func NewOIDCProvider(cfg config.OIDC) *OIDCProvider {
	return &OIDCProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		cache:  gocache.New(time.Hour, 10*time.Minute),
	}
}

// Enabled reports whether a provider is configured.
func (p *OIDCProvider) Enabled() bool {
	return p.cfg.Enabled()
}

func (p *OIDCProvider) getJSON(ctx context.Context, rawURL string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity provider returned %d for %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (p *OIDCProvider) discover(ctx context.Context) (*discovery, error) {
	if cached, ok := p.cache.Get(discoveryCacheKey); ok {
		return cached.(*discovery), nil
	}

	doc := &discovery{}
	if err := p.getJSON(ctx, p.cfg.WellKnownURL, doc); err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}
	if doc.JWKSURI == "" || doc.TokenEndpoint == "" || doc.AuthorizationEndpoint == "" {
		return nil, fmt.Errorf("oidc discovery document incomplete at %s", p.cfg.WellKnownURL)
	}

	p.cache.Set(discoveryCacheKey, doc, gocache.DefaultExpiration)
	return doc, nil
}

// AuthCodeURL builds the authorization redirect for a login attempt.
func (p *OIDCProvider) AuthCodeURL(ctx context.Context, redirectURI, state string) (string, error) {
	doc, err := p.discover(ctx)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return doc.AuthorizationEndpoint + "?" + q.Encode(), nil
}

// Exchange trades an authorization code for the provider's id token.
func (p *OIDCProvider) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	doc, err := p.discover(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, doc.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %w", resp.StatusCode, errdefs.ErrUnauthenticated)
	}

	var body struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.IDToken == "" {
		return "", fmt.Errorf("token response carried no id_token: %w", errdefs.ErrUnauthenticated)
	}
	return body.IDToken, nil
}

// VerifyIDToken validates an id token's signature against the provider's
// JWKS and returns its identity claims.
func (p *OIDCProvider) VerifyIDToken(ctx context.Context, raw string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods(p.cfg.Algorithms),
		jwt.WithAudience(p.cfg.ClientID),
	)

	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("id token missing kid header")
		}
		return p.keyForKid(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("id token rejected: %v: %w", err, errdefs.ErrUnauthenticated)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("id token carries no email claim: %w", errdefs.ErrUnauthenticated)
	}
	return claims, nil
}

// keyForKid resolves a signing key, fetching the JWKS on cache misses.
// Fresh kids fall through to a fetch so provider key rotation is picked up
// without restarts.
func (p *OIDCProvider) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if cached, ok := p.cache.Get(jwkCachePrefix + kid); ok {
		return cached.(*rsa.PublicKey), nil
	}

	doc, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}

	var set jwks
	if err := p.getJSON(ctx, doc.JWKSURI, &set); err != nil {
		return nil, fmt.Errorf("jwks fetch failed: %w", err)
	}

	var found *rsa.PublicKey
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			log.Logger.Warn().Str("kid", k.Kid).Err(err).Msg("Skipping unparseable JWKS key")
			continue
		}
		p.cache.Set(jwkCachePrefix+k.Kid, pub, gocache.DefaultExpiration)
		if k.Kid == kid {
			found = pub
		}
	}
	if found == nil {
		return nil, fmt.Errorf("no signing key %q in provider JWKS", kid)
	}
	return found, nil
}

// parseRSAKey converts a JWK's modulus and exponent into an rsa.PublicKey.
func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("non-positive exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
