package index

import (
	"context"
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/types"
)

// RootIndexCreate enables indexing for a root. Repeated calls return the
// existing record. All roots share one engine index, created with the
// document mapping the first time any root is enabled.
func (ix *Indexer) RootIndexCreate(ctx context.Context, requester *types.User, rootID string) (*types.RootIndex, error) {
	if err := ix.ready(); err != nil {
		return nil, err
	}

	existing, err := ix.store.GetRootIndexByRoot(rootID)
	if err == nil {
		return existing, nil
	}
	if !errdefs.IsNotFound(err) {
		return nil, err
	}

	root, err := ix.store.GetRoot(rootID)
	if err != nil {
		return nil, err
	}
	node, err := ix.store.GetNode(root.NodeID)
	if err != nil {
		return nil, err
	}
	if node.CreatorID != requester.ID {
		return nil, fmt.Errorf("only the node creator may index roots on %s: %w", node.Name, errdefs.ErrPermissionDenied)
	}

	if err := ix.ensureEngineIndex(ctx, types.IndexTypeDefault); err != nil {
		return nil, err
	}

	idx := &types.RootIndex{
		ID:        uuid.New().String(),
		RootID:    root.ID,
		IndexType: types.IndexTypeDefault,
		CreatedAt: time.Now().UTC(),
	}
	if err := ix.store.CreateRootIndex(idx); err != nil {
		return nil, err
	}

	log.WithComponent("index").Info().
		Str("root_id", root.ID).
		Str("index", string(idx.IndexType)).
		Msg("Enabled indexing for root")
	return idx, nil
}

// RootIndexDelete disables indexing for a root. Documents already in the
// engine are kept until the last indexed root goes away, at which point
// the engine index is dropped wholesale.
func (ix *Indexer) RootIndexDelete(ctx context.Context, requester *types.User, rootID string) error {
	if err := ix.ready(); err != nil {
		return err
	}

	idx, err := ix.store.GetRootIndexByRoot(rootID)
	if err != nil {
		return err
	}
	root, err := ix.store.GetRoot(rootID)
	if err != nil {
		return err
	}
	node, err := ix.store.GetNode(root.NodeID)
	if err != nil {
		return err
	}
	if node.CreatorID != requester.ID {
		return fmt.Errorf("only the node creator may drop indexes on %s: %w", node.Name, errdefs.ErrPermissionDenied)
	}

	if err := ix.store.DeleteRootIndex(idx.ID); err != nil {
		return err
	}
	remaining, err := ix.store.CountRootIndexes()
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}
	if err := ix.dropEngineIndex(ctx, idx.IndexType); err != nil {
		return err
	}
	log.WithComponent("index").Info().
		Str("index", string(idx.IndexType)).
		Msg("Dropped engine index, no indexed roots remain")
	return nil
}
