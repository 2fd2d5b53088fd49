/*
Package broker implements the Holt control plane: user provisioning, node
and root registration, workspace placement, sharing, and the credential
flow that trades workspace grants for scoped S3 session tokens.

The broker owns no transport concerns. pkg/api mounts it behind HTTP
routes; the CLI talks to those routes through pkg/client.

# Architecture

	┌──────────────────────── BROKER ────────────────────────┐
	│                                                          │
	│  ┌────────────────────────────────────────────┐         │
	│  │              Control Operations             │         │
	│  │  - Nodes: register / list / delete          │         │
	│  │  - Roots: create / list / delete / import   │         │
	│  │  - Workspaces: create / search / delete     │         │
	│  │  - Shares: create / update / revoke         │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │            Credential Flow                  │         │
	│  │  - MatchTerms: term → (workspace, path)     │         │
	│  │  - segment: my / foreign / roots            │         │
	│  │  - policy.Synthesize: grants → IAM policy   │         │
	│  │  - STS AssumeRole: policy → credentials     │         │
	│  │  - constellation reuse before minting       │         │
	│  └──────────────────┬─────────────────────────┘         │
	│                     │                                    │
	│  ┌──────────────────▼─────────────────────────┐         │
	│  │  storage.Store          s3.ClientSource     │         │
	│  │  (bbolt records)        (per-node SDK       │         │
	│  │                          clients, cached)   │         │
	│  └────────────────────────────────────────────┘         │
	└──────────────────────────────────────────────────────────┘

# Core Components

Broker:
  - One instance per process, constructed over a Store, a ClientSource
    and the Vault holding node credentials at rest
  - Entity-grouped method files: nodes.go, roots.go, workspaces.go,
    shares.go, tokens.go, apikeys.go

Resolver (resolver.go):
  - MatchTerms turns "alice/photos/2024/sep.jpg" into a workspace plus
    the path inside it, trying the first part as a username and falling
    back to a bare workspace name when that guess misleads
  - Ambiguity is a hard error so credentials never cover a workspace
    the caller did not mean

Credential broker (tokens.go):
  - Groups requested workspaces by storage node, one token per node
  - Segments each group into own-or-public workspaces (covered by
    root-level statements) and foreign ones (per-prefix statements,
    backed by a share or by ownership of an unmanaged workspace)
  - Reuses an unexpired token minted for exactly the same foreign
    workspace set and root set; expired rows for the constellation are
    refreshed in place

# Usage

	b := broker.New(store, clientCache, vault)

	node, err := b.NodeCreate(operator, &types.StorageNodeCreate{...})
	root, err := b.RootCreate(ctx, operator, &types.WorkspaceRootCreate{...})
	ws, err := b.WorkspaceCreate(ctx, alice, &types.WorkspaceCreate{Name: "photos"})

	resp, err := b.TokenSearch(ctx, bob, []string{"alice/photos/sep.jpg"})
	// resp.Tokens[0] carries STS credentials, resp.Workspaces maps the
	// term to (workspace, "sep.jpg")

# Integration Points

  - pkg/storage: every record the broker reads or writes
  - pkg/s3: cached S3 and STS clients per storage node
  - pkg/policy: pure policy synthesis, no store access
  - pkg/keys: name validation and workspace key derivation
  - pkg/security: vault sealing of node secrets, api key hashing
  - pkg/metrics: token mint/reuse counters, STS request outcomes

# Design Patterns

Permission checks live at the top of each operation and fail with
errdefs sentinels; pkg/api maps those to HTTP statuses without
inspecting messages.

Storage provisioning is best effort where the record is the source of
truth (workspace markers), and mandatory where missing storage would
strand the record (root buckets).

Node secrets stay sealed in every stored or returned struct; unsealNode
produces throwaway copies for SDK client construction only.
*/
package broker
