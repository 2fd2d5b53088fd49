package broker

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/cuemby/holt/pkg/keys"
	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/types"
)

// WorkspaceSearchOptions narrows a workspace search. Supplying Name or
// Like widens the candidate set to public workspaces, matching how terms
// like "alice/photos" must resolve against workspaces the requester does
// not own.
type WorkspaceSearchOptions struct {
	Name    string
	Like    string
	OwnerID string
	Public  bool
}

// WorkspaceSearch returns workspaces visible to the requester: owned ones,
// ones shared with them (unexpired shares only), and public ones when the
// options ask for them.
func (b *Broker) WorkspaceSearch(requester *types.User, opts WorkspaceSearchOptions) ([]*types.WorkspaceOut, error) {
	includePublic := opts.Public || opts.Name != "" || opts.Like != ""
	now := time.Now().UTC()

	seen := make(map[string]bool)
	var candidates []*types.Workspace
	add := func(ws *types.Workspace) {
		if !seen[ws.ID] {
			seen[ws.ID] = true
			candidates = append(candidates, ws)
		}
	}

	owned, err := b.store.ListWorkspacesByOwner(requester.ID)
	if err != nil {
		return nil, err
	}
	for _, ws := range owned {
		add(ws)
	}

	shares, err := b.store.ListSharesBySharee(requester.ID)
	if err != nil {
		return nil, err
	}
	for _, share := range shares {
		if share.Expired(now) {
			continue
		}
		ws, err := b.store.GetWorkspace(share.WorkspaceID)
		if err != nil {
			return nil, err
		}
		add(ws)
	}

	if includePublic {
		roots, err := b.store.ListRoots()
		if err != nil {
			return nil, err
		}
		for _, root := range roots {
			if root.RootType != types.RootTypePublic {
				continue
			}
			workspaces, err := b.store.ListWorkspacesByRoot(root.ID)
			if err != nil {
				return nil, err
			}
			for _, ws := range workspaces {
				add(ws)
			}
		}
	}

	var out []*types.WorkspaceOut
	for _, ws := range candidates {
		if opts.Name != "" && ws.Name != opts.Name {
			continue
		}
		if opts.Like != "" && !strings.Contains(strings.ToLower(ws.Name), strings.ToLower(opts.Like)) {
			continue
		}
		if opts.OwnerID != "" && ws.OwnerID != opts.OwnerID {
			continue
		}
		projected, err := b.workspaceOut(ws)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner.Username != out[j].Owner.Username {
			return out[i].Owner.Username < out[j].Owner.Username
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// WorkspaceCreate places a new workspace. With BasePath set the request
// registers existing data under an unmanaged root, which only the node
// creator may do. Otherwise a managed root matching the visibility is
// picked and a zero-byte marker object is written so the prefix shows up
// in listings right away.
func (b *Broker) WorkspaceCreate(ctx context.Context, requester *types.User, req *types.WorkspaceCreate) (*types.WorkspaceOut, error) {
	if err := keys.ValidateName(req.Name); err != nil {
		return nil, err
	}

	basePath := strings.Trim(req.BasePath, "/")
	var root *types.WorkspaceRoot
	var err error

	if basePath != "" {
		if req.RootID == "" {
			return nil, fmt.Errorf("unmanaged workspaces need an explicit root id: %w", errdefs.ErrInvalidArgument)
		}
		root, err = b.store.GetRoot(req.RootID)
		if err != nil {
			return nil, err
		}
		if root.RootType != types.RootTypeUnmanaged {
			return nil, fmt.Errorf("root %s is not unmanaged, cannot place workspace there: %w", root.ID, errdefs.ErrPermissionDenied)
		}
	} else {
		root, err = b.pickManagedRoot(req)
		if err != nil {
			return nil, err
		}
	}

	node, err := b.store.GetNode(root.NodeID)
	if err != nil {
		return nil, err
	}
	if root.RootType == types.RootTypeUnmanaged && node.CreatorID != requester.ID {
		return nil, fmt.Errorf("only the node creator may register unmanaged workspaces: %w", errdefs.ErrPermissionDenied)
	}

	ws := &types.Workspace{
		ID:        uuid.New().String(),
		Name:      req.Name,
		OwnerID:   requester.ID,
		RootID:    root.ID,
		BasePath:  basePath,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.store.CreateWorkspace(ws); err != nil {
		return nil, err
	}

	if ws.Managed() {
		b.touchWorkspaceMarker(ctx, node, root, ws, requester.Username)
	}

	log.WithWorkspaceID(ws.ID).Info().
		Str("name", ws.Name).
		Str("root_id", root.ID).
		Str("root_type", string(root.RootType)).
		Msg("Created workspace")
	return &types.WorkspaceOut{Workspace: *ws, Owner: requester, Root: root}, nil
}

// pickManagedRoot selects the first root matching the requested
// visibility, optionally pinned to a node by name or to a root by id.
func (b *Broker) pickManagedRoot(req *types.WorkspaceCreate) (*types.WorkspaceRoot, error) {
	rootType := types.RootTypePrivate
	if req.Public {
		rootType = types.RootTypePublic
	}

	var nodeID string
	if req.NodeName != "" {
		node, err := b.store.GetNodeByName(req.NodeName)
		if err != nil {
			return nil, err
		}
		nodeID = node.ID
	}

	roots, err := b.store.ListRoots()
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		if root.RootType != rootType {
			continue
		}
		if nodeID != "" && root.NodeID != nodeID {
			continue
		}
		if req.NodeName == "" && req.RootID != "" && root.ID != req.RootID {
			continue
		}
		return root, nil
	}
	return nil, fmt.Errorf("no available %s roots found, contact your administrator: %w", rootType, errdefs.ErrNotFound)
}

// touchWorkspaceMarker writes an empty object at the workspace prefix so
// the workspace is visible to bucket listings before any real upload.
// Failures are logged and swallowed, the workspace record stands either
// way.
func (b *Broker) touchWorkspaceMarker(ctx context.Context, node *types.StorageNode, root *types.WorkspaceRoot, ws *types.Workspace, ownerUsername string) {
	key := keys.WorkspaceKey(root, ws, ownerUsername) + "/"

	unsealed, err := b.unsealNode(node)
	if err != nil {
		log.WithWorkspaceID(ws.ID).Warn().Err(err).Msg("Skipping workspace marker, node credentials unavailable")
		return
	}
	client, err := b.clients.S3(ctx, unsealed)
	if err != nil {
		log.WithWorkspaceID(ws.ID).Warn().Err(err).Msg("Skipping workspace marker, no storage client")
		return
	}
	_, err = client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(root.Bucket),
		Key:    aws.String(key),
		ACL:    s3types.ObjectCannedACLPrivate,
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		log.WithWorkspaceID(ws.ID).Warn().Err(err).Str("key", key).Msg("Failed to write workspace marker")
	}
}

// WorkspaceGet returns one workspace with its owner and root joined.
// Workspace metadata is visible to any authenticated user; the object
// data behind it is what tokens gate.
func (b *Broker) WorkspaceGet(requester *types.User, id string) (*types.WorkspaceOut, error) {
	ws, err := b.store.GetWorkspace(id)
	if err != nil {
		return nil, err
	}
	return b.workspaceOut(ws)
}

// WorkspaceDelete removes a workspace, its shares and its token bindings.
// Owner only.
func (b *Broker) WorkspaceDelete(requester *types.User, id string) error {
	ws, err := b.store.GetWorkspace(id)
	if err != nil {
		return err
	}
	if ws.OwnerID != requester.ID {
		return fmt.Errorf("only the owner may delete workspace %s: %w", ws.Name, errdefs.ErrPermissionDenied)
	}
	if err := b.removeWorkspace(ws); err != nil {
		return err
	}
	log.WithWorkspaceID(ws.ID).Info().Str("name", ws.Name).Msg("Deleted workspace")
	return nil
}

// removeWorkspace drops a workspace row together with the shares and
// tokens hanging off it. Objects in the bucket are left alone.
func (b *Broker) removeWorkspace(ws *types.Workspace) error {
	shares, err := b.store.ListSharesByWorkspace(ws.ID)
	if err != nil {
		return err
	}
	for _, share := range shares {
		if err := b.store.DeleteShare(share.ID); err != nil {
			return err
		}
	}
	if _, err := b.store.DeleteTokensByWorkspace(ws.ID); err != nil {
		return err
	}
	return b.store.DeleteWorkspace(ws.ID)
}

// workspaceOut joins a workspace with its owner and root.
func (b *Broker) workspaceOut(ws *types.Workspace) (*types.WorkspaceOut, error) {
	owner, err := b.store.GetUser(ws.OwnerID)
	if err != nil {
		return nil, err
	}
	root, err := b.store.GetRoot(ws.RootID)
	if err != nil {
		return nil, err
	}
	return &types.WorkspaceOut{Workspace: *ws, Owner: owner, Root: root}, nil
}
