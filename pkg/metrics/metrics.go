package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Entity gauges, refreshed by the Collector
	NodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "holt_nodes_total",
			Help: "Total number of registered storage nodes",
		},
	)

	RootsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "holt_roots_total",
			Help: "Total number of workspace roots by type",
		},
		[]string{"root_type"},
	)

	WorkspacesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "holt_workspaces_total",
			Help: "Total number of workspaces",
		},
	)

	TokensActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "holt_tokens_active",
			Help: "Number of unexpired S3 tokens",
		},
	)

	// Broker metrics
	TokensMinted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holt_tokens_minted_total",
			Help: "Total number of tokens minted via STS",
		},
	)

	TokensReused = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holt_tokens_reused_total",
			Help: "Total number of token requests satisfied by an existing token",
		},
	)

	STSRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holt_sts_requests_total",
			Help: "Total number of STS AssumeRole calls by node and status",
		},
		[]string{"node", "status"},
	)

	// Index metrics
	IndexDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holt_index_documents_total",
			Help: "Total number of index documents written by operation",
		},
		[]string{"op"},
	)

	BulkRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holt_bulk_requests_total",
			Help: "Total number of bulk submissions by source and status",
		},
		[]string{"source", "status"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holt_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holt_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(RootsTotal)
	prometheus.MustRegister(WorkspacesTotal)
	prometheus.MustRegister(TokensActive)
	prometheus.MustRegister(TokensMinted)
	prometheus.MustRegister(TokensReused)
	prometheus.MustRegister(STSRequestsTotal)
	prometheus.MustRegister(IndexDocumentsTotal)
	prometheus.MustRegister(BulkRequestsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures a duration for histogram observation
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time on the given observer
func (t *Timer) ObserveDuration(o prometheus.Observer) {
	o.Observe(t.Duration().Seconds())
}
