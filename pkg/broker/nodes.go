package broker

import (
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/cuemby/holt/pkg/keys"
	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/types"
)

// NodeCreate registers an S3-compatible endpoint. The secret key is sealed
// before it touches the store; only the creator can later delete the node
// or carve roots on it.
func (b *Broker) NodeCreate(requester *types.User, req *types.StorageNodeCreate) (*types.StorageNode, error) {
	if err := keys.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if req.APIURL == "" {
		return nil, fmt.Errorf("node api_url must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	if req.AccessKeyID == "" || req.SecretAccessKey == "" {
		return nil, fmt.Errorf("node credentials must not be empty: %w", errdefs.ErrInvalidArgument)
	}

	sealed, err := b.vault.SealString(req.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to seal node credentials: %w", err)
	}

	node := &types.StorageNode{
		ID:              uuid.New().String(),
		Name:            req.Name,
		APIURL:          req.APIURL,
		STSAPIURL:       req.STSAPIURL,
		Region:          req.Region,
		AccessKeyID:     req.AccessKeyID,
		SecretAccessKey: sealed,
		AssumeRoleARN:   req.AssumeRoleARN,
		CreatorID:       requester.ID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := b.store.CreateNode(node); err != nil {
		return nil, err
	}

	log.WithNodeID(node.ID).Info().Str("name", node.Name).Str("api_url", node.APIURL).Msg("Registered storage node")
	return node, nil
}

// NodeList returns all registered nodes.
func (b *Broker) NodeList() ([]*types.StorageNode, error) {
	return b.store.ListNodes()
}

// NodeDelete removes a node and everything placed on it: roots, their
// workspaces, shares and tokens. Creator only.
func (b *Broker) NodeDelete(requester *types.User, id string) error {
	node, err := b.store.GetNode(id)
	if err != nil {
		return err
	}
	if node.CreatorID != requester.ID {
		return fmt.Errorf("only the node creator may delete node %s: %w", node.Name, errdefs.ErrPermissionDenied)
	}

	roots, err := b.store.ListRootsByNode(node.ID)
	if err != nil {
		return err
	}
	for _, root := range roots {
		if err := b.removeRoot(root, true); err != nil {
			return err
		}
	}

	if err := b.store.DeleteNode(node.ID); err != nil {
		return err
	}

	log.WithNodeID(node.ID).Info().Str("name", node.Name).Int("roots", len(roots)).Msg("Deleted storage node")
	return nil
}
