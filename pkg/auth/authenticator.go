package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/containerd/errdefs"

	"github.com/cuemby/holt/pkg/security"
	"github.com/cuemby/holt/pkg/storage"
	"github.com/cuemby/holt/pkg/types"
)

// Authenticator resolves the user behind an incoming API request. It
// accepts API key pairs over HTTP Basic auth, bearer tokens carrying
// either a key pair or a session token, and the session cookie set by
// the browser login flow.
type Authenticator struct {
	store  storage.Store
	secret string
}

// NewAuthenticator creates an authenticator backed by the given store.
func NewAuthenticator(store storage.Store, secret string) *Authenticator {
	return &Authenticator{store: store, secret: secret}
}

// Authenticate identifies the user behind a request. It returns
// ErrUnauthenticated when no credentials are present or none verify.
func (a *Authenticator) Authenticate(r *http.Request) (*types.User, error) {
	if keyID, keySecret, ok := r.BasicAuth(); ok {
		return a.userForAPIKey(keyID, keySecret)
	}

	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return nil, fmt.Errorf("unsupported authorization scheme: %w", errdefs.ErrUnauthenticated)
		}
		// API key pairs are passed as "key_id:secret", anything
		// else is treated as a session token.
		if keyID, keySecret, found := strings.Cut(token, ":"); found {
			return a.userForAPIKey(keyID, keySecret)
		}
		return a.userForSession(token)
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return a.userForSession(cookie.Value)
	}

	return nil, fmt.Errorf("no credentials: %w", errdefs.ErrUnauthenticated)
}

func (a *Authenticator) userForAPIKey(keyID, secret string) (*types.User, error) {
	key, err := a.store.GetAPIKeyByKeyID(keyID)
	if err != nil {
		// Deliberately indistinguishable from a bad secret.
		return nil, fmt.Errorf("invalid api key: %w", errdefs.ErrUnauthenticated)
	}
	if !security.VerifyAPIKeySecret(key.SecretHash, secret) {
		return nil, fmt.Errorf("invalid api key: %w", errdefs.ErrUnauthenticated)
	}
	user, err := a.store.GetUser(key.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid api key: %w", errdefs.ErrUnauthenticated)
	}
	return user, nil
}

func (a *Authenticator) userForSession(raw string) (*types.User, error) {
	claims, err := ParseSessionToken(a.secret, raw)
	if err != nil {
		return nil, err
	}
	user, err := a.store.GetUser(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("session user not found: %w", errdefs.ErrUnauthenticated)
	}
	return user, nil
}
