package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/containerd/errdefs"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/samber/lo"

	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/metrics"
	"github.com/cuemby/holt/pkg/storage"
	"github.com/cuemby/holt/pkg/types"
)

// Indexer maintains the search index over workspace objects. Documents
// arrive on two paths with identical ids: pull, where a crawler lists a
// workspace and posts batches against a crawl round, and push, where the
// object store forwards bucket event notifications.
type Indexer struct {
	store storage.Store
	es    *elasticsearch.Client
}

// New creates an indexer over the given store and search engine client.
// A nil client disables indexing; every operation then reports the engine
// as unavailable.
func New(store storage.Store, es *elasticsearch.Client) *Indexer {
	return &Indexer{store: store, es: es}
}

// Enabled reports whether a search engine is configured.
func (ix *Indexer) Enabled() bool {
	return ix.es != nil
}

func (ix *Indexer) ready() error {
	if ix.es == nil {
		return fmt.Errorf("no search engine configured: %w", errdefs.ErrNotImplemented)
	}
	return nil
}

// ensureEngineIndex creates the engine index with the document mapping.
// A concurrent or earlier creation is fine; only the mapping applied at
// creation time matters.
func (ix *Indexer) ensureEngineIndex(ctx context.Context, name types.IndexType) error {
	res, err := ix.es.Indices.Create(
		string(name),
		ix.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
		ix.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %v: %w", name, err, errdefs.ErrUnavailable)
	}
	defer res.Body.Close()
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	if bytes.Contains(body, []byte("resource_already_exists_exception")) {
		return nil
	}
	return fmt.Errorf("failed to create index %s: %s: %w", name, res.Status(), errdefs.ErrUnavailable)
}

// dropEngineIndex deletes the engine index. Absence is not an error so
// the record side can always be cleaned up.
func (ix *Indexer) dropEngineIndex(ctx context.Context, name types.IndexType) error {
	res, err := ix.es.Indices.Delete(
		[]string{string(name)},
		ix.es.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete index %s: %v: %w", name, err, errdefs.ErrUnavailable)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("failed to delete index %s: %s: %w", name, res.Status(), errdefs.ErrUnavailable)
	}
	return nil
}

// submit sends one assembled bulk payload. The engine reports per-item
// failures inside a 200 body, so the errors flag is inspected separately;
// item failures are logged but do not fail the request, because re-issuing
// an upsert or delete is idempotent.
func (ix *Indexer) submit(ctx context.Context, w *BulkWriter, source string) error {
	res, err := ix.es.Bulk(w.Reader(), ix.es.Bulk.WithContext(ctx))
	if err != nil {
		metrics.BulkRequestsTotal.WithLabelValues(source, "error").Inc()
		return fmt.Errorf("bulk submit failed: %v: %w", err, errdefs.ErrUnavailable)
	}
	defer res.Body.Close()
	if res.IsError() {
		metrics.BulkRequestsTotal.WithLabelValues(source, "error").Inc()
		return fmt.Errorf("bulk submit failed: %s: %w", res.Status(), errdefs.ErrUnavailable)
	}
	var report struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&report); err == nil && report.Errors {
		log.WithComponent("index").Warn().Str("source", source).Msg("Bulk response reported item failures")
	}
	metrics.BulkRequestsTotal.WithLabelValues(source, "success").Inc()
	return nil
}

// shareeIDs collects the users a workspace is currently shared with.
// Expired shares grant nothing, so they are left off the documents.
func (ix *Indexer) shareeIDs(workspaceID string) ([]string, error) {
	shares, err := ix.store.ListSharesByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return lo.FilterMap(shares, func(share *types.Share, _ int) (string, bool) {
		return share.ShareeID, !share.Expired(now)
	}), nil
}

// decorate stamps the server-assigned fields onto a document. Both ingest
// paths run through here so that identically located objects carry the
// same denormalization regardless of how they arrived.
func decorate(doc *types.IndexDocument, ws *types.Workspace, owner *types.User, root *types.WorkspaceRoot, node *types.StorageNode, prefix string, sharees []string, roundID string) {
	doc.WorkspaceID = ws.ID
	doc.WorkspaceName = ws.Name
	doc.OwnerID = owner.ID
	doc.OwnerName = owner.Username
	doc.Bucket = root.Bucket
	doc.Server = node.APIURL
	doc.RootPath = root.BasePath
	doc.WorkspaceBasePath = prefix
	doc.LastSeenCrawlID = roundID
	doc.RootID = root.ID
	doc.UserShares = sharees
}
