package index

import (
	"context"
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/cuemby/holt/pkg/keys"
	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/metrics"
	"github.com/cuemby/holt/pkg/types"
)

// CrawlCreate opens a crawl round for a workspace, or returns the round
// already in flight so the crawler can resume from its last indexed key.
func (ix *Indexer) CrawlCreate(requester *types.User, workspaceID string) (*types.CrawlRound, error) {
	if err := ix.ready(); err != nil {
		return nil, err
	}

	ws, err := ix.store.GetWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	root, err := ix.store.GetRoot(ws.RootID)
	if err != nil {
		return nil, err
	}
	node, err := ix.store.GetNode(root.NodeID)
	if err != nil {
		return nil, err
	}
	if node.CreatorID != requester.ID {
		return nil, fmt.Errorf("only the node creator may crawl %s: %w", ws.Name, errdefs.ErrPermissionDenied)
	}

	next := &types.CrawlRound{
		ID:          uuid.New().String(),
		WorkspaceID: ws.ID,
		StartTime:   time.Now().UTC(),
	}
	round, created, err := ix.store.OpenCrawlRound(ws.ID, next)
	if err != nil {
		return nil, err
	}
	if created {
		log.WithWorkspaceID(ws.ID).Info().
			Str("round_id", round.ID).
			Msg("Opened crawl round")
	}
	return round, nil
}

// BulkIndex applies one crawl batch: documents are decorated with their
// workspace context, accounted against the open round, and upserted to
// the engine in a single bulk call. The round is advanced before the
// engine write; a failed write can be replayed because document ids are
// derived from object location.
func (ix *Indexer) BulkIndex(ctx context.Context, requester *types.User, workspaceID string, req *types.BulkIndexRequest) (*types.BulkIndexResponse, error) {
	if err := ix.ready(); err != nil {
		return nil, err
	}

	ws, err := ix.store.GetWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	round, err := ix.store.LatestCrawlRound(ws.ID)
	if err != nil {
		return nil, err
	}
	if !round.Open() {
		return nil, fmt.Errorf("crawl round %s is closed: %w", round.ID, errdefs.ErrFailedPrecondition)
	}
	root, err := ix.store.GetRoot(ws.RootID)
	if err != nil {
		return nil, err
	}
	node, err := ix.store.GetNode(root.NodeID)
	if err != nil {
		return nil, err
	}
	if node.CreatorID != requester.ID {
		return nil, fmt.Errorf("only the node creator may index %s: %w", ws.Name, errdefs.ErrPermissionDenied)
	}
	idx, err := ix.store.GetRootIndexByRoot(root.ID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("root %s has no index: %w", root.ID, errdefs.ErrInvalidArgument)
		}
		return nil, err
	}

	owner, err := ix.store.GetUser(ws.OwnerID)
	if err != nil {
		return nil, err
	}
	sharees, err := ix.shareeIDs(ws.ID)
	if err != nil {
		return nil, err
	}
	prefix := keys.WorkspaceKey(root, ws, owner.Username)

	writer := NewBulkWriter(string(idx.IndexType))
	var sizeSum int64
	for i := range req.Documents {
		doc := req.Documents[i]
		decorate(&doc, ws, owner, root, node, prefix, sharees, round.ID)
		id := keys.RecordPrimaryKey(node.APIURL, root.Bucket, prefix, doc.Path)
		if err := writer.Upsert(id, &doc); err != nil {
			return nil, err
		}
		sizeSum += doc.Size
	}

	lastKey := req.LastIndexedKey
	if lastKey == "" && len(req.Documents) > 0 {
		lastKey = req.Documents[len(req.Documents)-1].Path
	}
	round, err = ix.store.AdvanceCrawlRound(round.ID, int64(len(req.Documents)), sizeSum, lastKey, req.Succeeded)
	if err != nil {
		return nil, err
	}

	if writer.Actions() > 0 {
		if err := ix.submit(ctx, writer, "crawl"); err != nil {
			return nil, err
		}
		metrics.IndexDocumentsTotal.WithLabelValues("upsert").Add(float64(writer.Actions()))
	}

	log.WithWorkspaceID(ws.ID).Info().
		Str("round_id", round.ID).
		Int("documents", len(req.Documents)).
		Bool("succeeded", round.Succeeded).
		Msg("Indexed crawl batch")
	return &types.BulkIndexResponse{Round: round, Count: len(req.Documents)}, nil
}
