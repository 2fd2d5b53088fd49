/*
Package api exposes the Holt broker over HTTP.

The api package is the only transport layer in the server: it mounts the
broker and the indexer behind JSON routes, resolves the user behind each
request, maps broker errors to status codes, and serves the health and
metrics endpoints alongside the browser login flow.

# Architecture

Requests flow through one middleware stack into plain handler methods:

	┌─────────────────────── CLIENT ───────────────────────────┐
	│   CLI (pkg/client)      browser        MinIO webhook       │
	│   Basic / Bearer        session cookie  (unauthenticated)  │
	└──────────────────────────┬────────────────────────────────┘
	                           │ HTTP (JSON)
	┌──────────────────────────▼──── SERVER ────────────────────┐
	│                                                            │
	│  ┌──────────────────────────────────────────────┐         │
	│  │           gorilla/mux Router                  │         │
	│  │  - instrument: metrics + access log           │         │
	│  │  - authenticated: API key / session → User    │         │
	│  └──────────────────┬───────────────────────────┘         │
	│                     │                                      │
	│  ┌──────────────────▼───────────────────────────┐         │
	│  │            Handlers (this package)            │         │
	│  │  - decode request, call broker/indexer        │         │
	│  │  - map errdefs errors to HTTP statuses        │         │
	│  └─────────┬────────────────────────┬───────────┘         │
	│            │                        │                      │
	│  ┌─────────▼─────────┐   ┌──────────▼──────────┐          │
	│  │   broker.Broker   │   │   index.Indexer     │          │
	│  │  control plane    │   │  crawls, events,    │          │
	│  │  and credentials  │   │  search passthrough │          │
	│  └───────────────────┘   └─────────────────────┘          │
	└────────────────────────────────────────────────────────────┘

# Routes

Everything under /api requires credentials, with three exceptions: the
server info endpoint, and the MinIO event sink which the object store
calls directly. /health, /ready, /metrics and the /login pair are outside
the authenticated surface entirely.

Control plane:
  - GET  /api/info: public address and version
  - GET  /api/users/me, GET /api/users: identity
  - GET|POST /api/node, DELETE /api/node/{id}: storage nodes
  - GET|POST /api/root, DELETE /api/root/{id}: workspace roots
  - POST /api/root/{id}/import: operator credentials for an import crawl
  - GET|POST /api/workspace, GET|DELETE /api/workspace/{id}
  - POST|GET /api/workspace/share, PUT|DELETE /api/workspace/share/{id}

Credentials:
  - GET|POST /api/token, DELETE /api/token/{id}, DELETE /api/token
  - POST /api/token/search: terms → scoped tokens plus path mapping
  - GET|POST|DELETE /api/apikey

Indexing:
  - POST|DELETE /api/root/{id}/index: root index lifecycle
  - POST /api/workspace/{id}/crawl: open or resume a crawl round
  - POST /api/workspace/{id}/bulk_index: crawler document batches
  - POST|HEAD /api/minio/events: bucket notification sink
  - POST /api/search: engine search scoped to the requester

# Authentication

The authenticated wrapper delegates to pkg/auth: HTTP Basic carries an
API key pair, Bearer tokens carry a key pair or a session token, and
browsers send the session cookie issued by /login/complete. Failures are
answered with a uniform 401 so callers cannot probe which credential part
was wrong.

# Error Mapping

Handlers return broker errors as {"message": ...} bodies. The status code
comes from the errdefs category: not found 404, already exists and failed
precondition 409, permission denied 403, invalid argument 400,
unauthenticated 401, unavailable 502, anything else 500.
*/
package api
