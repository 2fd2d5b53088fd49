package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/cuemby/holt/pkg/auth"
	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/types"
)

// stateCookie carries the anti-forgery state across the OIDC redirect.
const stateCookie = "login_state"

type loginResult struct {
	Token string      `json:"token"`
	User  *types.User `json:"user"`
}

func (s *Server) redirectURI() string {
	return strings.TrimRight(s.cfg.PublicName, "/") + "/login/complete"
}

// loginHandler starts a browser login by redirecting to the identity
// provider's authorization endpoint.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if !s.oidc.Enabled() {
		writeError(w, fmt.Errorf("browser login is not configured: %w", errdefs.ErrNotImplemented))
		return
	}

	state := uuid.NewString()
	authURL, err := s.oidc.AuthCodeURL(r.Context(), s.redirectURI(), state)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// loginCompleteHandler finishes a browser login: it trades the
// authorization code for an id token, verifies it, provisions the user and
// hands back a session token both as a cookie and in the response body so
// it can be pasted into the CLI.
func (s *Server) loginCompleteHandler(w http.ResponseWriter, r *http.Request) {
	if !s.oidc.Enabled() {
		writeError(w, fmt.Errorf("browser login is not configured: %w", errdefs.ErrNotImplemented))
		return
	}

	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		writeError(w, fmt.Errorf("identity provider rejected login: %s: %w", denied, errdefs.ErrUnauthenticated))
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, fmt.Errorf("missing authorization code: %w", errdefs.ErrInvalidArgument))
		return
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		writeError(w, fmt.Errorf("login state mismatch: %w", errdefs.ErrUnauthenticated))
		return
	}

	idToken, err := s.oidc.Exchange(r.Context(), code, s.redirectURI())
	if err != nil {
		writeError(w, err)
		return
	}
	claims, err := s.oidc.VerifyIDToken(r.Context(), idToken)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := s.broker.ProvisionUser(claims.Email, claims.UsernameHint())
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := auth.NewSessionToken(s.cfg.Secret, user, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(auth.SessionLifetime),
		HttpOnly: true,
	})

	log.WithComponent("api").Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Completed browser login")
	writeJSON(w, http.StatusOK, &loginResult{Token: token, User: user})
}
