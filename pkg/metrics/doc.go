/*
Package metrics provides Prometheus metrics collection and exposition for Holt.

The metrics package defines and registers all Holt metrics using the Prometheus
client library, providing observability into broker activity, token issuance,
index throughput, and API latency. Metrics are exposed via HTTP endpoint for
scraping by Prometheus servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ─────────────────────┐
	│                                                          │
	│  ┌────────────────────────────────────────────┐         │
	│  │          Prometheus Registry                │         │
	│  │  - Global DefaultRegistry                   │         │
	│  │  - MustRegister at package init             │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │              Metric Sources                 │         │
	│  │                                             │         │
	│  │  Collector: entity gauges from the store    │         │
	│  │  Broker: token mint/reuse, STS calls        │         │
	│  │  Index: bulk submissions, documents         │         │
	│  │  API middleware: request count, duration    │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │          HTTP Metrics Endpoint              │         │
	│  │  - Path: /metrics                           │         │
	│  │  - Format: Prometheus text exposition       │         │
	│  │  - Handler: promhttp.Handler()              │         │
	│  └────────────────────────────────────────────┘         │
	└──────────────────────────────────────────────────────────┘

# Metrics Catalog

Entity gauges (refreshed every 15s by the Collector):

holt_nodes_total:
  - Type: Gauge
  - Description: Registered storage nodes

holt_roots_total{root_type}:
  - Type: Gauge
  - Description: Workspace roots by type (public/private/unmanaged)

holt_workspaces_total:
  - Type: Gauge
  - Description: Total workspaces

holt_tokens_active:
  - Type: Gauge
  - Description: Unexpired S3 tokens in the store

Broker counters:

holt_tokens_minted_total:
  - Type: Counter
  - Description: Tokens minted via STS AssumeRole

holt_tokens_reused_total:
  - Type: Counter
  - Description: Token requests satisfied by an existing token

holt_sts_requests_total{node, status}:
  - Type: Counter
  - Description: STS calls by node name and ok/error status

Index counters:

holt_index_documents_total{op}:
  - Type: Counter
  - Description: Documents written by operation (upsert/delete)

holt_bulk_requests_total{source, status}:
  - Type: Counter
  - Description: Bulk submissions by source (crawl/event) and status

API metrics:

holt_api_requests_total{method, status}:
  - Type: Counter
  - Description: API requests by HTTP method and response status

holt_api_request_duration_seconds{method}:
  - Type: Histogram
  - Description: API request duration in seconds

# Usage

Updating metrics:

	import "github.com/cuemby/holt/pkg/metrics"

	metrics.TokensMinted.Inc()
	metrics.STSRequestsTotal.WithLabelValues("minio-east", "ok").Inc()

Timing an operation:

	timer := metrics.NewTimer()
	// ... handle request ...
	timer.ObserveDuration(metrics.APIRequestDuration.WithLabelValues(r.Method))

Running the collector:

	collector := metrics.NewCollector(store)
	collector.Start()
	defer collector.Stop()

# Health Endpoints

The package also carries the /health and /ready handlers. Components
register themselves with RegisterComponent and update their status with
UpdateComponent. Readiness gates on the store and API only; a broken
search engine degrades /health but never /ready, because credential
brokering works without it.

# Integration Points

This package integrates with:

  - pkg/broker: token mint/reuse and STS counters
  - pkg/index: document and bulk counters
  - pkg/api: request middleware, health handlers
  - pkg/storage: entity gauges via the Collector
  - Prometheus: scrapes /metrics endpoint

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()

Label Discipline:
  - Node names and root types are low-cardinality labels
  - Workspace and token IDs never appear as labels
*/
package metrics
