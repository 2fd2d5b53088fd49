/*
Package client provides a Go client for the Holt HTTP API.

The client wraps every server route in a typed method, handles
authentication headers and error decoding, and is the only way the CLI
talks to a server. It has no dependencies on server internals beyond the
shared pkg/types.

# Architecture

	┌──────────────────── APPLICATION CODE ───────────────────┐
	│                                                           │
	│  import "github.com/cuemby/holt/pkg/client"               │
	│                                                           │
	│  c := client.New("https://holt.example.com", apiKey)      │
	│  ws, err := c.WorkspaceCreate(...)                        │
	│                                                           │
	└──────────────────┬────────────────────────────────────────┘
	                   │
	┌──────────────────▼──── pkg/client ───────────────────────┐
	│  - JSON encode/decode against pkg/types                   │
	│  - Basic auth (key pair) or Bearer (session token)        │
	│  - per-call timeouts, wide window for bulk batches        │
	│  - non-2xx → *APIError{StatusCode, Message}               │
	└──────────────────┬────────────────────────────────────────┘
	                   │ HTTP (JSON)
	                   ▼
	           Holt API server (pkg/api)

# Authentication

New takes a single credential string. "key_id:secret" pairs are sent as
HTTP Basic auth; anything without a colon is treated as a session token
and sent as a Bearer header, which is what `auth login` pastes.

# Error Handling

Non-2xx responses become *APIError carrying the status code and the
server's message, so callers can distinguish a 404 from a 409 without
string matching:

	ws, err := c.WorkspaceGet(id)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		...
	}

# See Also

  - pkg/api for the server side of every route
  - pkg/types for the request and response shapes
  - cmd/holt for CLI usage
*/
package client
