package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/containerd/errdefs"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/metrics"
	"github.com/cuemby/holt/pkg/policy"
	"github.com/cuemby/holt/pkg/types"
)

// MinIO ignores the role ARN but the field is mandatory, so requests to
// nodes without one carry a placeholder.
const placeholderRoleARN = "arn:xxx:xxx:xxx:xxxx"

// grant is a workspace joined with its root for grouping and policy
// synthesis.
type grant struct {
	workspace *types.Workspace
	root      *types.WorkspaceRoot
}

// TokenCreate returns one credential set per storage node covering the
// requested workspaces. An unexpired token minted for exactly the same
// constellation is reused; otherwise a policy is synthesized and traded
// for fresh STS credentials. Unknown workspace ids are ignored.
func (b *Broker) TokenCreate(ctx context.Context, requester *types.User, workspaceIDs []string) ([]*types.S3TokenOut, error) {
	grants, nodeOrder, err := b.loadGrants(workspaceIDs)
	if err != nil {
		return nil, err
	}

	out := []*types.S3TokenOut{}
	for _, nodeID := range nodeOrder {
		token, err := b.tokenForNode(ctx, requester, nodeID, grants[nodeID])
		if err != nil {
			return nil, err
		}
		out = append(out, token)
	}
	return out, nil
}

// loadGrants resolves workspace ids to grants grouped by storage node,
// preserving the order nodes first appear in the request.
func (b *Broker) loadGrants(workspaceIDs []string) (map[string][]grant, []string, error) {
	grants := make(map[string][]grant)
	var nodeOrder []string
	seen := make(map[string]bool)

	for _, id := range workspaceIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		ws, err := b.store.GetWorkspace(id)
		if errdefs.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		root, err := b.store.GetRoot(ws.RootID)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := grants[root.NodeID]; !ok {
			nodeOrder = append(nodeOrder, root.NodeID)
		}
		grants[root.NodeID] = append(grants[root.NodeID], grant{workspace: ws, root: root})
	}
	return grants, nodeOrder, nil
}

// tokenForNode reuses or mints the one token covering this node's grants.
func (b *Broker) tokenForNode(ctx context.Context, requester *types.User, nodeID string, grants []grant) (*types.S3TokenOut, error) {
	node, err := b.store.GetNode(nodeID)
	if err != nil {
		return nil, err
	}

	my, foreign, roots, err := b.segment(requester, grants)
	if err != nil {
		return nil, err
	}

	foreignIDs := make([]string, 0, len(foreign))
	for _, f := range foreign {
		foreignIDs = append(foreignIDs, f.Workspace.ID)
	}
	rootIDs := make([]string, 0, len(roots))
	for _, r := range roots {
		rootIDs = append(rootIDs, r.ID)
	}

	existing, err := b.findConstellationToken(requester.ID, nodeID, foreignIDs, rootIDs)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Expired(time.Now().UTC()) {
		metrics.TokensReused.Inc()
		return &types.S3TokenOut{S3Token: *existing, Node: node.Out()}, nil
	}

	doc, err := policy.Synthesize(requester, my, foreign)
	if err != nil {
		return nil, err
	}
	policyJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy: %w", err)
	}

	creds, err := b.assumeRole(ctx, node, requester.ID, policyJSON)
	if err != nil {
		return nil, err
	}

	token := &types.S3Token{
		ID:        uuid.New().String(),
		OwnerID:   requester.ID,
		NodeID:    nodeID,
		CreatedAt: time.Now().UTC(),
	}
	if existing != nil {
		// Refresh the lapsed row for this constellation in place.
		token.ID = existing.ID
		token.CreatedAt = existing.CreatedAt
	}
	token.AccessKeyID = aws.ToString(creds.AccessKeyId)
	token.SecretAccessKey = aws.ToString(creds.SecretAccessKey)
	token.SessionToken = aws.ToString(creds.SessionToken)
	token.Expiration = aws.ToTime(creds.Expiration)
	token.Policy = policyJSON
	token.WorkspaceIDs = foreignIDs
	token.RootIDs = rootIDs

	if err := b.store.CreateToken(token); err != nil {
		return nil, err
	}

	metrics.TokensMinted.Inc()
	log.WithTokenID(token.ID).Info().
		Str("node", node.Name).
		Int("foreign_workspaces", len(foreignIDs)).
		Int("roots", len(rootIDs)).
		Time("expiration", token.Expiration).
		Msg("Minted token")
	return &types.S3TokenOut{S3Token: *token, Node: node.Out()}, nil
}

// segment splits one node's grants into the requester's own-or-public set,
// the foreign set carrying shares, and the unique roots behind the own
// set. A foreign workspace with neither share nor public root fails the
// whole request. The requester's own unmanaged workspaces count as foreign
// with a nil share since they need per-prefix statements.
func (b *Broker) segment(requester *types.User, grants []grant) ([]policy.Grant, []policy.ForeignGrant, []*types.WorkspaceRoot, error) {
	now := time.Now().UTC()
	var my []policy.Grant
	var foreign []policy.ForeignGrant
	var roots []*types.WorkspaceRoot
	seenRoots := make(map[string]bool)

	addMine := func(pg policy.Grant) {
		my = append(my, pg)
		if !seenRoots[pg.Root.ID] {
			seenRoots[pg.Root.ID] = true
			roots = append(roots, pg.Root)
		}
	}

	for _, g := range grants {
		owner, err := b.store.GetUser(g.workspace.OwnerID)
		if err != nil {
			return nil, nil, nil, err
		}
		pg := policy.Grant{Workspace: g.workspace, Root: g.root, OwnerUsername: owner.Username}

		if g.workspace.OwnerID != requester.ID {
			share, err := b.shareFor(g.workspace.ID, requester.ID, now)
			if err != nil {
				return nil, nil, nil, err
			}
			if share != nil {
				foreign = append(foreign, policy.ForeignGrant{Grant: pg, Share: share})
			} else if g.root.RootType == types.RootTypePublic {
				// Not the requester's workspace, but readable through
				// the root statements anyway.
				addMine(pg)
			} else {
				return nil, nil, nil, fmt.Errorf("user %s is not permitted to access %s: %w",
					requester.Username, g.workspace.Name, errdefs.ErrPermissionDenied)
			}
		} else if g.root.RootType == types.RootTypeUnmanaged {
			// Own workspaces on unmanaged roots sit at arbitrary
			// prefixes, so they always need per-prefix statements.
			foreign = append(foreign, policy.ForeignGrant{Grant: pg})
		} else {
			addMine(pg)
		}
	}
	return my, foreign, roots, nil
}

// shareFor returns the requester's live share on a workspace, nil when
// there is none or it has expired.
func (b *Broker) shareFor(workspaceID, shareeID string, now time.Time) (*types.Share, error) {
	shares, err := b.store.ListSharesByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	for _, share := range shares {
		if share.ShareeID == shareeID && !share.Expired(now) {
			return share, nil
		}
	}
	return nil, nil
}

// findConstellationToken looks for a token the requester already holds for
// exactly this foreign workspace set and root set on the node, regardless
// of expiry. Expired matches are refreshed rather than duplicated.
func (b *Broker) findConstellationToken(ownerID, nodeID string, foreignIDs, rootIDs []string) (*types.S3Token, error) {
	tokens, err := b.store.ListTokensByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	for _, token := range tokens {
		if token.NodeID != nodeID {
			continue
		}
		if setEqual(token.WorkspaceIDs, foreignIDs) && setEqual(token.RootIDs, rootIDs) {
			return token, nil
		}
	}
	return nil, nil
}

func setEqual(a, b []string) bool {
	return len(a) == len(b) && lo.Every(a, b)
}

// assumeRole trades a policy for short-lived credentials on the node's
// STS endpoint.
func (b *Broker) assumeRole(ctx context.Context, node *types.StorageNode, sessionName string, policyJSON []byte) (*ststypes.Credentials, error) {
	unsealed, err := b.unsealNode(node)
	if err != nil {
		return nil, err
	}
	client, err := b.clients.STS(ctx, unsealed)
	if err != nil {
		return nil, err
	}

	roleARN := node.AssumeRoleARN
	if roleARN == "" {
		roleARN = placeholderRoleARN
	}
	resp, err := client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(sessionName),
		Policy:          aws.String(string(policyJSON)),
	})
	if err != nil {
		metrics.STSRequestsTotal.WithLabelValues(node.Name, "error").Inc()
		return nil, fmt.Errorf("failed to assume role on node %s: %v: %w", node.Name, err, errdefs.ErrUnavailable)
	}
	if resp.Credentials == nil {
		metrics.STSRequestsTotal.WithLabelValues(node.Name, "error").Inc()
		return nil, fmt.Errorf("node %s returned no credentials: %w", node.Name, errdefs.ErrUnavailable)
	}
	metrics.STSRequestsTotal.WithLabelValues(node.Name, "success").Inc()
	return resp.Credentials, nil
}

// TokenList returns the requester's unexpired tokens with their nodes.
func (b *Broker) TokenList(requester *types.User) ([]*types.S3TokenOut, error) {
	tokens, err := b.store.ListTokensByOwner(requester.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	nodes := make(map[string]*types.StorageNode)
	out := []*types.S3TokenOut{}
	for _, token := range tokens {
		if token.Expired(now) {
			continue
		}
		node, ok := nodes[token.NodeID]
		if !ok {
			node, err = b.store.GetNode(token.NodeID)
			if err != nil {
				return nil, err
			}
			nodes[token.NodeID] = node
		}
		out = append(out, &types.S3TokenOut{S3Token: *token, Node: node.Out()})
	}
	return out, nil
}

// TokenRevoke deletes one of the requester's tokens. Credentials the
// object store already issued keep working until natural expiry.
func (b *Broker) TokenRevoke(requester *types.User, id string) error {
	token, err := b.store.GetToken(id)
	if err != nil {
		return err
	}
	if token.OwnerID != requester.ID {
		return fmt.Errorf("token %s is not owned by %s: %w", id, requester.Username, errdefs.ErrPermissionDenied)
	}
	if err := b.store.DeleteToken(token.ID); err != nil {
		return err
	}
	log.WithTokenID(token.ID).Info().Msg("Revoked token")
	return nil
}

// TokenRevokeAll deletes every token the requester owns and returns how
// many went.
func (b *Broker) TokenRevokeAll(requester *types.User) (int, error) {
	n, err := b.store.DeleteTokensByOwner(requester.ID)
	if err != nil {
		return 0, err
	}
	log.WithUserID(requester.ID).Info().Int("tokens", n).Msg("Revoked all tokens")
	return n, nil
}

// TokenSearch resolves free-form terms such as "alice/photos/sep.jpg" to
// workspaces, fetches credentials covering all of them, and reports which
// term landed where. Terms that match nothing are left out of the map;
// ambiguous terms fail the request.
func (b *Broker) TokenSearch(ctx context.Context, requester *types.User, terms []string) (*types.S3TokenSearchResponse, error) {
	matches := make(map[string]types.S3TokenSearchMatch)
	var ids []string
	seen := make(map[string]bool)

	for _, term := range terms {
		match, innerPath, err := b.MatchTerms(requester, term)
		if err != nil {
			return nil, err
		}
		if match == nil {
			continue
		}
		matches[term] = types.S3TokenSearchMatch{Workspace: match, Path: innerPath}
		if !seen[match.ID] {
			seen[match.ID] = true
			ids = append(ids, match.ID)
		}
	}

	tokens := []*types.S3TokenOut{}
	if len(ids) > 0 {
		var err error
		tokens, err = b.TokenCreate(ctx, requester, ids)
		if err != nil {
			return nil, err
		}
	}
	return &types.S3TokenSearchResponse{Tokens: tokens, Workspaces: matches}, nil
}
