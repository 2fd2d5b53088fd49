/*
Package log provides structured logging for Holt using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

Holt's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("broker")                  │          │
	│  │  - WithNodeID("node-abc123")                │          │
	│  │  - WithWorkspaceID("ws-xyz")                │          │
	│  │  - WithTokenID("token-def456")              │          │
	│  │  - WithUserID("user-789")                   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {"level":"info","component":"broker",      │          │
	│  │   "workspace_id":"ws-123",                  │          │
	│  │   "time":"2025-01-15T10:30:00Z",            │          │
	│  │   "message":"token minted"}                 │          │
	│  └──────────────────────────────────────────────┘         │
	│                                                            │
	└────────────────────────────────────────────────────────────┘

# Core Components

Logger: The global zerolog.Logger instance used by all components. It is
configured once at startup via Init and is safe for concurrent use.

Config: Configures the logger's level, output format, and destination:

	log.Init(log.Config{
	    Level:      log.InfoLevel,
	    JSONOutput: true,
	    Output:     os.Stderr,
	})

Component loggers: Child loggers that attach identifying fields to every
event. Each subsystem derives its own logger once and reuses it:

	logger := log.WithComponent("index")
	logger.Info().Str("round", round.ID).Msg("crawl round opened")

# Log Levels

Holt uses four severity levels in production (plus fatal for startup):

  - debug: verbose diagnostics such as generated policy documents, client
    cache keys, and Elasticsearch bulk payload sizes
  - info: lifecycle events such as server start, workspace creation, token
    minting, and crawl round transitions
  - warn: recoverable anomalies such as a failed workspace marker upload or
    a bucket that already exists during root provisioning
  - error: operation failures that are returned to API callers
  - fatal: unrecoverable startup errors; logs and exits the process

# Usage

Initialize the logger once in main before any other component starts:

	log.Init(log.Config{
	    Level:      log.InfoLevel,
	    JSONOutput: cfg.LogJSON,
	})

	log.Info("holt starting")

Components hold a child logger and use zerolog's fluent API directly:

	type Broker struct {
	    logger *zerolog.Logger
	}

	b.logger = log.WithComponent("broker")
	b.logger.Error().Err(err).Str("workspace", name).Msg("create failed")

The typed helpers keep field names uniform across the codebase:

	log.WithWorkspaceID(ws.ID).Debug().Msg("resolved workspace")
	log.WithTokenID(token.ID).Info().Msg("token revoked")
	log.WithUserID(user.ID).Warn().Msg("share expired")

# Integration Points

  - cmd/holt: initializes the global logger from the loaded configuration
  - pkg/api: logs every request with method, path, status, and duration
  - pkg/broker: logs token minting, STS calls, and workspace lifecycle
  - pkg/index: logs bulk index flushes, crawl rounds, and event dispatch
  - pkg/storage: logs database open/close and compaction events

# Log Output Examples

Server startup:

	{"level":"info","time":"2025-01-15T10:30:00Z","version":"0.3.1","message":"holt starting"}

Token minted:

	{"level":"info","component":"broker","token_id":"f81d4fae...","node":"minio-local","time":"2025-01-15T10:30:05Z","message":"sts credentials issued"}

Bucket event handled:

	{"level":"debug","component":"index","bucket":"workspaces","key":"alice/photos/cat.jpg","time":"2025-01-15T10:30:09Z","message":"object upserted"}

# Performance Characteristics

  - Zero-allocation logging for disabled levels
  - JSON encoding is performed only when the event is actually written
  - Child loggers share the parent's writer; derivation is cheap
  - Console output (human format) is for development only; it is
    substantially slower than JSON output

# Best Practices

 1. Derive a component logger once per subsystem, not per call
 2. Attach IDs with the typed helpers so field names stay uniform
 3. Use Err(err) rather than formatting errors into the message string
 4. Keep messages lowercase and terse; structured fields carry the detail
 5. Never log credentials, session tokens, or API key secrets

# See Also

  - pkg/api: HTTP request logging middleware
  - pkg/metrics: Prometheus metrics that complement structured logs
*/
package log
