package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cuemby/holt/pkg/auth"
	"github.com/cuemby/holt/pkg/broker"
	"github.com/cuemby/holt/pkg/config"
	"github.com/cuemby/holt/pkg/index"
	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/metrics"
	"github.com/cuemby/holt/pkg/storage"
)

// Server exposes the broker over HTTP.
type Server struct {
	cfg           *config.Config
	store         storage.Store
	broker        *broker.Broker
	indexer       *index.Indexer
	authenticator *auth.Authenticator
	oidc          *auth.OIDCProvider
	version       string

	router *mux.Router
	http   *http.Server
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg *config.Config, store storage.Store, brk *broker.Broker, ix *index.Indexer, authn *auth.Authenticator, oidc *auth.OIDCProvider, version string) *Server {
	s := &Server{
		cfg:           cfg,
		store:         store,
		broker:        brk,
		indexer:       ix,
		authenticator: authn,
		oidc:          oidc,
		version:       version,
	}
	s.router = s.routes()
	return s
}

// routes builds the router. Health probes, metrics, the login flow, server
// info and the bucket notification sink are unauthenticated; everything
// else requires credentials.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.readyHandler).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/login", s.loginHandler).Methods(http.MethodGet)
	r.HandleFunc("/login/complete", s.loginCompleteHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/info", s.infoHandler).Methods(http.MethodGet)
	api.HandleFunc("/minio/events", s.eventsHandler).Methods(http.MethodPost)
	api.HandleFunc("/minio/events", s.eventsProbeHandler).Methods(http.MethodHead)

	api.HandleFunc("/users/me", s.authenticated(s.currentUserHandler)).Methods(http.MethodGet)
	api.HandleFunc("/users", s.authenticated(s.listUsersHandler)).Methods(http.MethodGet)

	api.HandleFunc("/node", s.authenticated(s.listNodesHandler)).Methods(http.MethodGet)
	api.HandleFunc("/node", s.authenticated(s.createNodeHandler)).Methods(http.MethodPost)
	api.HandleFunc("/node/{id}", s.authenticated(s.deleteNodeHandler)).Methods(http.MethodDelete)

	api.HandleFunc("/root", s.authenticated(s.listRootsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/root", s.authenticated(s.createRootHandler)).Methods(http.MethodPost)
	api.HandleFunc("/root/{id}", s.authenticated(s.deleteRootHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/root/{id}/index", s.authenticated(s.createRootIndexHandler)).Methods(http.MethodPost)
	api.HandleFunc("/root/{id}/index", s.authenticated(s.deleteRootIndexHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/root/{id}/import", s.authenticated(s.importRootHandler)).Methods(http.MethodPost)

	api.HandleFunc("/workspace", s.authenticated(s.searchWorkspacesHandler)).Methods(http.MethodGet)
	api.HandleFunc("/workspace", s.authenticated(s.createWorkspaceHandler)).Methods(http.MethodPost)
	api.HandleFunc("/workspace/share", s.authenticated(s.createShareHandler)).Methods(http.MethodPost)
	api.HandleFunc("/workspace/share", s.authenticated(s.listSharesHandler)).Methods(http.MethodGet)
	api.HandleFunc("/workspace/share/{id}", s.authenticated(s.updateShareHandler)).Methods(http.MethodPut)
	api.HandleFunc("/workspace/share/{id}", s.authenticated(s.deleteShareHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/workspace/{id}", s.authenticated(s.getWorkspaceHandler)).Methods(http.MethodGet)
	api.HandleFunc("/workspace/{id}", s.authenticated(s.deleteWorkspaceHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/workspace/{id}/crawl", s.authenticated(s.crawlWorkspaceHandler)).Methods(http.MethodPost)
	api.HandleFunc("/workspace/{id}/bulk_index", s.authenticated(s.bulkIndexHandler)).Methods(http.MethodPost)

	api.HandleFunc("/token", s.authenticated(s.listTokensHandler)).Methods(http.MethodGet)
	api.HandleFunc("/token", s.authenticated(s.createTokenHandler)).Methods(http.MethodPost)
	api.HandleFunc("/token", s.authenticated(s.deleteTokensHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/token/search", s.authenticated(s.searchTokensHandler)).Methods(http.MethodPost)
	api.HandleFunc("/token/{id}", s.authenticated(s.deleteTokenHandler)).Methods(http.MethodDelete)

	api.HandleFunc("/apikey", s.authenticated(s.listAPIKeysHandler)).Methods(http.MethodGet)
	api.HandleFunc("/apikey", s.authenticated(s.createAPIKeyHandler)).Methods(http.MethodPost)
	api.HandleFunc("/apikey", s.authenticated(s.deleteAPIKeysHandler)).Methods(http.MethodDelete)

	api.HandleFunc("/search", s.authenticated(s.searchHandler)).Methods(http.MethodPost)

	return r
}

// Handler returns the HTTP handler for embedding in tests or other servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens and serves until Stop is called. Bulk index batches can be
// large, so only the header read is bounded here.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.WithComponent("api").Info().Str("addr", addr).Msg("API listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the server, waiting for in-flight requests.
func (s *Server) Stop() {
	if s.http == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		log.WithComponent("api").Warn().Err(err).Msg("Forced API shutdown")
		_ = s.http.Close()
	}
}
