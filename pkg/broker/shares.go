package broker

import (
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/types"
)

// ShareCreate grants another user access to a workspace. The workspace may
// be named by id or by a resolver term, the sharee by id or username.
// Only the workspace owner may share it.
func (b *Broker) ShareCreate(requester *types.User, req *types.ShareCreate) (*types.Share, error) {
	sharee, err := b.resolveSharee(req)
	if err != nil {
		return nil, err
	}
	ws, err := b.resolveShareWorkspace(requester, req)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID != requester.ID {
		return nil, fmt.Errorf("only the owner may share workspace %s: %w", ws.Name, errdefs.ErrPermissionDenied)
	}

	permission := req.Permission
	if permission == "" {
		permission = types.SharePermissionRead
	}
	switch permission {
	case types.SharePermissionRead, types.SharePermissionReadWrite, types.SharePermissionOwn:
	default:
		return nil, fmt.Errorf("unknown share permission %q: %w", permission, errdefs.ErrInvalidArgument)
	}

	share := &types.Share{
		ID:          uuid.New().String(),
		WorkspaceID: ws.ID,
		CreatorID:   requester.ID,
		ShareeID:    sharee.ID,
		Permission:  permission,
		Expiration:  req.Expiration,
		CreatedAt:   time.Now().UTC(),
	}
	if err := b.store.CreateShare(share); err != nil {
		return nil, err
	}

	log.WithWorkspaceID(ws.ID).Info().
		Str("share_id", share.ID).
		Str("sharee", sharee.Username).
		Str("permission", string(permission)).
		Msg("Created share")
	return share, nil
}

func (b *Broker) resolveSharee(req *types.ShareCreate) (*types.User, error) {
	if req.ShareeID != "" {
		return b.store.GetUser(req.ShareeID)
	}
	if req.ShareeName != "" {
		return b.store.GetUserByUsername(req.ShareeName)
	}
	return nil, fmt.Errorf("share needs a sharee id or username: %w", errdefs.ErrInvalidArgument)
}

func (b *Broker) resolveShareWorkspace(requester *types.User, req *types.ShareCreate) (*types.Workspace, error) {
	if req.WorkspaceID != "" {
		return b.store.GetWorkspace(req.WorkspaceID)
	}
	if req.WorkspaceName != "" {
		match, _, err := b.MatchTerms(requester, req.WorkspaceName)
		if err != nil {
			return nil, err
		}
		if match == nil {
			return nil, fmt.Errorf("no workspace matches %q: %w", req.WorkspaceName, errdefs.ErrNotFound)
		}
		return &match.Workspace, nil
	}
	return nil, fmt.Errorf("share needs a workspace id or name: %w", errdefs.ErrInvalidArgument)
}

// ShareList returns shares where the user is creator or sharee.
func (b *Broker) ShareList(user *types.User) ([]*types.Share, error) {
	return b.store.ListSharesByUser(user.ID)
}

// ShareUpdate changes a share's permission or expiration. Creator only.
// Tokens minted against the workspace are invalidated so the next fetch
// reflects the new grant.
func (b *Broker) ShareUpdate(requester *types.User, id string, req *types.ShareUpdate) (*types.Share, error) {
	share, err := b.store.GetShare(id)
	if err != nil {
		return nil, err
	}
	if share.CreatorID != requester.ID {
		return nil, fmt.Errorf("only the share creator may update share %s: %w", id, errdefs.ErrPermissionDenied)
	}

	if req.Permission != "" {
		switch req.Permission {
		case types.SharePermissionRead, types.SharePermissionReadWrite, types.SharePermissionOwn:
		default:
			return nil, fmt.Errorf("unknown share permission %q: %w", req.Permission, errdefs.ErrInvalidArgument)
		}
		share.Permission = req.Permission
	}
	if req.Expiration != nil {
		share.Expiration = req.Expiration
	}

	if err := b.store.UpdateShare(share); err != nil {
		return nil, err
	}
	if _, err := b.store.DeleteTokensByWorkspace(share.WorkspaceID); err != nil {
		return nil, err
	}

	log.WithWorkspaceID(share.WorkspaceID).Info().
		Str("share_id", share.ID).
		Str("permission", string(share.Permission)).
		Msg("Updated share")
	return share, nil
}

// ShareDelete revokes a share. Either side may do it: the creator takes
// access back, the sharee declines it. Dependent tokens are invalidated;
// credentials the store already issued ride out their natural expiry.
func (b *Broker) ShareDelete(requester *types.User, id string) error {
	share, err := b.store.GetShare(id)
	if err != nil {
		return err
	}
	if share.CreatorID != requester.ID && share.ShareeID != requester.ID {
		return fmt.Errorf("share %s does not involve user %s: %w", id, requester.Username, errdefs.ErrPermissionDenied)
	}

	if err := b.store.DeleteShare(share.ID); err != nil {
		return err
	}
	if _, err := b.store.DeleteTokensByWorkspace(share.WorkspaceID); err != nil {
		return err
	}

	log.WithWorkspaceID(share.WorkspaceID).Info().Str("share_id", share.ID).Msg("Revoked share")
	return nil
}
