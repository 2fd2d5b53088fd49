package metrics

import (
	"time"

	"github.com/cuemby/holt/pkg/storage"
)

// Collector refreshes entity gauges from the store while the broker runs
type Collector struct {
	store  storage.Store
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectRootMetrics()
	c.collectWorkspaceMetrics()
	c.collectTokenMetrics()
}

func (c *Collector) collectNodeMetrics() {
	nodes, err := c.store.ListNodes()
	if err != nil {
		return
	}

	NodesTotal.Set(float64(len(nodes)))
}

func (c *Collector) collectRootMetrics() {
	roots, err := c.store.ListRoots()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, root := range roots {
		counts[string(root.RootType)]++
	}

	RootsTotal.Reset()
	for rootType, count := range counts {
		RootsTotal.WithLabelValues(rootType).Set(float64(count))
	}
}

func (c *Collector) collectWorkspaceMetrics() {
	workspaces, err := c.store.ListWorkspaces()
	if err != nil {
		return
	}

	WorkspacesTotal.Set(float64(len(workspaces)))
}

func (c *Collector) collectTokenMetrics() {
	tokens, err := c.store.ListTokens()
	if err != nil {
		return
	}

	now := time.Now()
	active := 0
	for _, token := range tokens {
		if !token.Expired(now) {
			active++
		}
	}

	TokensActive.Set(float64(active))
}
