package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/types"
)

// RootCreate carves a workspace root on a node and provisions its bucket.
// Only the node creator may do this. An already existing bucket owned by
// the node credentials is fine; any other storage error aborts the create.
func (b *Broker) RootCreate(ctx context.Context, requester *types.User, req *types.WorkspaceRootCreate) (*types.WorkspaceRoot, error) {
	node, err := b.store.GetNodeByName(req.NodeName)
	if err != nil {
		return nil, err
	}
	if node.CreatorID != requester.ID {
		return nil, fmt.Errorf("only the node creator may create roots on %s: %w", node.Name, errdefs.ErrPermissionDenied)
	}

	rootType := req.RootType
	if rootType == "" {
		rootType = types.RootTypePrivate
	}
	switch rootType {
	case types.RootTypePublic, types.RootTypePrivate, types.RootTypeUnmanaged:
	default:
		return nil, fmt.Errorf("unknown root type %q: %w", rootType, errdefs.ErrInvalidArgument)
	}

	bucket := strings.Trim(req.Bucket, "/")
	basePath := strings.Trim(req.BasePath, "/")
	if bucket == "" {
		return nil, fmt.Errorf("bucket must not be empty: %w", errdefs.ErrInvalidArgument)
	}

	if err := b.provisionBucket(ctx, node, bucket); err != nil {
		return nil, err
	}

	root := &types.WorkspaceRoot{
		ID:        uuid.New().String(),
		RootType:  rootType,
		NodeID:    node.ID,
		Bucket:    bucket,
		BasePath:  basePath,
		CreatorID: requester.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.store.CreateRoot(root); err != nil {
		return nil, err
	}

	log.WithNodeID(node.ID).Info().
		Str("root_id", root.ID).
		Str("root_type", string(rootType)).
		Str("bucket", bucket).
		Str("base_path", basePath).
		Msg("Created workspace root")
	return root, nil
}

// provisionBucket creates the root's bucket with a private ACL. Buckets
// the node credentials already own are left alone.
func (b *Broker) provisionBucket(ctx context.Context, node *types.StorageNode, bucket string) error {
	unsealed, err := b.unsealNode(node)
	if err != nil {
		return err
	}
	client, err := b.clients.S3(ctx, unsealed)
	if err != nil {
		return err
	}

	_, err = client.CreateBucket(ctx, &awss3.CreateBucketInput{
		Bucket: aws.String(bucket),
		ACL:    s3types.BucketCannedACLPrivate,
	})
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		// MinIO reports an owned bucket as BucketAlreadyExists.
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			log.WithNodeID(node.ID).Warn().Str("bucket", bucket).Msg("Bucket already exists, reusing it")
			return nil
		}
	}
	return fmt.Errorf("failed to create bucket %s on node %s: %v: %w", bucket, node.Name, err, errdefs.ErrUnavailable)
}

// RootList returns roots, optionally narrowed to one node by name.
func (b *Broker) RootList(nodeName string) ([]*types.WorkspaceRoot, error) {
	if nodeName == "" {
		return b.store.ListRoots()
	}
	node, err := b.store.GetNodeByName(nodeName)
	if err != nil {
		return nil, err
	}
	return b.store.ListRootsByNode(node.ID)
}

// RootDelete removes a root that no workspace references anymore. Only
// the node creator may delete roots.
func (b *Broker) RootDelete(requester *types.User, id string) error {
	root, err := b.store.GetRoot(id)
	if err != nil {
		return err
	}
	node, err := b.store.GetNode(root.NodeID)
	if err != nil {
		return err
	}
	if node.CreatorID != requester.ID {
		return fmt.Errorf("only the node creator may delete roots on %s: %w", node.Name, errdefs.ErrPermissionDenied)
	}
	return b.removeRoot(root, false)
}

// removeRoot drops a root, its token bindings and its index subscription.
// With cascade set the root's workspaces go too, otherwise their presence
// blocks the delete.
func (b *Broker) removeRoot(root *types.WorkspaceRoot, cascade bool) error {
	workspaces, err := b.store.ListWorkspacesByRoot(root.ID)
	if err != nil {
		return err
	}
	if len(workspaces) > 0 && !cascade {
		return fmt.Errorf("root %s still has %d workspaces: %w", root.ID, len(workspaces), errdefs.ErrFailedPrecondition)
	}
	for _, ws := range workspaces {
		if err := b.removeWorkspace(ws); err != nil {
			return err
		}
	}

	if _, err := b.store.DeleteTokensByRoot(root.ID); err != nil {
		return err
	}
	if idx, err := b.store.GetRootIndexByRoot(root.ID); err == nil {
		if err := b.store.DeleteRootIndex(idx.ID); err != nil {
			return err
		}
	} else if !errdefs.IsNotFound(err) {
		return err
	}
	return b.store.DeleteRoot(root.ID)
}

// RootImport hands the root and its node's plaintext credentials to the
// node creator, who then crawls the bucket client side and registers the
// discovered prefixes as unmanaged workspaces.
func (b *Broker) RootImport(requester *types.User, id string) (*types.RootCredentials, error) {
	root, err := b.store.GetRoot(id)
	if err != nil {
		return nil, err
	}
	node, err := b.store.GetNode(root.NodeID)
	if err != nil {
		return nil, err
	}
	if node.CreatorID != requester.ID {
		return nil, fmt.Errorf("only the node creator may import root %s: %w", root.ID, errdefs.ErrPermissionDenied)
	}

	unsealed, err := b.unsealNode(node)
	if err != nil {
		return nil, err
	}
	return &types.RootCredentials{Root: root, Node: unsealed}, nil
}
