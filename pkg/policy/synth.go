package policy

import (
	"fmt"
	"path"

	"github.com/containerd/errdefs"

	"github.com/cuemby/holt/pkg/keys"
	"github.com/cuemby/holt/pkg/types"
)

// Grant pairs a workspace with its resolved root and owner name. The
// synthesizer works on denormalized grants so it never touches the store.
type Grant struct {
	Workspace     *types.Workspace
	Root          *types.WorkspaceRoot
	OwnerUsername string
}

// ForeignGrant is access to a workspace the requester does not reach
// through root-level statements: somebody else's workspace backed by a
// share, or the requester's own unmanaged workspace. Share is nil in the
// owner case.
type ForeignGrant struct {
	Grant
	Share *types.Share
}

// Synthesize builds the minimal inline policy covering the requester's own
// workspaces (per-root statements) and the foreign workspaces (per-prefix
// statements). All grants must live on a single storage node.
func Synthesize(requester *types.User, owned []Grant, foreign []ForeignGrant) (*Document, error) {
	if len(owned)+len(foreign) == 0 {
		return nil, fmt.Errorf("no workspaces to build a policy for: %w", errdefs.ErrInvalidArgument)
	}

	nodeID := ""
	for _, g := range owned {
		if nodeID == "" {
			nodeID = g.Root.NodeID
		} else if g.Root.NodeID != nodeID {
			return nil, fmt.Errorf("workspaces span multiple storage nodes: %w", errdefs.ErrInvalidArgument)
		}
	}
	for _, g := range foreign {
		if nodeID == "" {
			nodeID = g.Root.NodeID
		} else if g.Root.NodeID != nodeID {
			return nil, fmt.Errorf("workspaces span multiple storage nodes: %w", errdefs.ErrInvalidArgument)
		}
	}

	doc := &Document{Version: Version}

	// Root-level statements, one group per distinct root, in the order
	// roots first appear.
	var rootOrder []string
	groups := map[string][]Grant{}
	for _, g := range owned {
		if _, ok := groups[g.Root.ID]; !ok {
			rootOrder = append(rootOrder, g.Root.ID)
		}
		groups[g.Root.ID] = append(groups[g.Root.ID], g)
	}

	for _, rootID := range rootOrder {
		group := groups[rootID]
		root := group[0].Root

		ownsHere := false
		for _, g := range group {
			if g.Workspace.OwnerID == requester.ID {
				ownsHere = true
				break
			}
		}

		doc.Statement = append(doc.Statement, Statement{
			Effect:   EffectAllow,
			Action:   []Action{ActionGetBucketLocation},
			Resource: []string{BucketARN(root.Bucket)},
		})

		switch root.RootType {
		case types.RootTypePublic:
			doc.Statement = append(doc.Statement, Statement{
				Effect:   EffectAllow,
				Action:   []Action{ActionListBucket},
				Resource: []string{BucketARN(root.Bucket)},
				Condition: &Condition{StringLike: &StringLike{
					Prefix:    []string{path.Join(root.BasePath, "*")},
					Delimiter: []string{"/"},
				}},
			})
			doc.Statement = append(doc.Statement, Statement{
				Effect:   EffectAllow,
				Action:   []Action{ActionGetObject},
				Resource: []string{objectARN(root.Bucket, root.BasePath, "*")},
			})
			if ownsHere {
				doc.Statement = append(doc.Statement, Statement{
					Effect:   EffectAllow,
					Action:   []Action{ActionAll},
					Resource: []string{objectARN(root.Bucket, root.BasePath, requester.Username, "*")},
				})
			}
		default:
			doc.Statement = append(doc.Statement, Statement{
				Effect:   EffectAllow,
				Action:   []Action{ActionListBucket},
				Resource: []string{BucketARN(root.Bucket)},
				Condition: &Condition{StringLike: &StringLike{
					Prefix: []string{path.Join(root.BasePath, requester.Username, "*")},
				}},
			})
			doc.Statement = append(doc.Statement, Statement{
				Effect:   EffectAllow,
				Action:   []Action{ActionAll},
				Resource: []string{objectARN(root.Bucket, root.BasePath, requester.Username, "*")},
			})
		}
	}

	// Prefix-level statements, one group per foreign workspace.
	for _, g := range foreign {
		key := keys.WorkspaceKey(g.Root, g.Workspace, g.OwnerUsername)

		doc.Statement = append(doc.Statement, Statement{
			Effect:   EffectAllow,
			Action:   []Action{ActionListBucket},
			Resource: []string{BucketARN(g.Root.Bucket)},
			Condition: &Condition{StringLike: &StringLike{
				Prefix:    []string{key},
				Delimiter: []string{"/"},
			}},
		})
		doc.Statement = append(doc.Statement, Statement{
			Effect:   EffectAllow,
			Action:   []Action{ActionListBucket},
			Resource: []string{BucketARN(g.Root.Bucket)},
			Condition: &Condition{StringLike: &StringLike{
				Prefix: []string{path.Join(key, "*")},
			}},
		})
		doc.Statement = append(doc.Statement, Statement{
			Effect:   EffectAllow,
			Action:   []Action{ActionGetObject},
			Resource: []string{objectARN(g.Root.Bucket, key, "*")},
		})

		writable := g.Share != nil &&
			(g.Share.Permission == types.SharePermissionReadWrite || g.Share.Permission == types.SharePermissionOwn)
		if g.Share == nil && g.Workspace.OwnerID == requester.ID {
			writable = true
		}
		if writable {
			doc.Statement = append(doc.Statement, Statement{
				Effect:   EffectAllow,
				Action:   []Action{ActionPutObject, ActionDeleteObject},
				Resource: []string{objectARN(g.Root.Bucket, key, "*")},
			})
		}
	}

	return doc, nil
}
