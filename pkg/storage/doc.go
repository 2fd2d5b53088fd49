/*
Package storage provides BoltDB-backed state persistence for Holt's broker data.

The storage package implements the Store interface using BoltDB as the
underlying database, providing ACID transactions for broker state including
users, API keys, storage nodes, workspace roots, workspaces, shares, minted
tokens, root indexes, and crawl rounds. All data is serialized as JSON and
stored in separate buckets for efficient querying and isolation.

# Architecture

Holt uses BoltDB (bbolt) for embedded, transactional storage with zero
external dependencies:

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            BoltStore                        │          │
	│  │  - File: <dataDir>/holt.db                  │          │
	│  │  - Format: B+tree with MVCC                 │          │
	│  │  - Transactions: ACID with fsync            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure                │          │
	│  │  ┌────────────────────────────┐             │          │
	│  │  │ users          (User ID)   │             │          │
	│  │  │ api_keys       (Key ID)    │             │          │
	│  │  │ nodes          (Node ID)   │             │          │
	│  │  │ roots          (Root ID)   │             │          │
	│  │  │ workspaces     (WS ID)     │             │          │
	│  │  │ shares         (Share ID)  │             │          │
	│  │  │ tokens         (Token ID)  │             │          │
	│  │  │ root_indexes   (Index ID)  │             │          │
	│  │  │ crawl_rounds   (Round ID)  │             │          │
	│  │  └────────────────────────────┘             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │        Transaction Management                │          │
	│  │  - Read: db.View() - Concurrent reads       │          │
	│  │  - Write: db.Update() - Serialized writes   │          │
	│  │  - Rollback: Automatic on error             │          │
	│  │  - Commit: Automatic on success + fsync     │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Uniqueness Rules

Creates enforce the invariants the broker relies on, inside the same write
transaction as the insert:

  - users: username and email unique (email case-insensitive)
  - api_keys: key_id unique
  - nodes: name unique
  - roots: (node_id, bucket, base_path) unique
  - workspaces: (owner_id, name) unique
  - root_indexes: one per root

Violations are reported as errdefs.ErrAlreadyExists so the API layer can
map them to 409 without string matching. Missing entities come back as
errdefs.ErrNotFound.

# Crawl Round Serialization

The crawl coordinator needs check-then-act semantics that survive
concurrent requests:

  - OpenCrawlRound: returns the currently open round, or atomically
    persists a fresh one when the latest round already succeeded. The scan
    and the insert share one db.Update, so two crawlers racing to start a
    round converge on a single winner.
  - AdvanceCrawlRound: read-modify-write of one round; batches against a
    round that already succeeded fail with errdefs.ErrFailedPrecondition.

BoltDB serializes writers globally, which makes both methods linearizable
without additional locking.

# Token Association Cleanup

Tokens record the foreign workspace IDs and root IDs their policy covers.
DeleteTokensByWorkspace and DeleteTokensByRoot drop every matching token in
one transaction; the broker calls them when shares are revoked, workspaces
are deleted, or roots are torn down, so revocation takes effect on the next
credential fetch.

# Usage

Creating a Store:

	store, err := storage.NewBoltStore("/var/lib/holt")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

Workspace operations:

	ws := &types.Workspace{
		ID:      uuid.NewString(),
		Name:    "photos",
		OwnerID: owner.ID,
		RootID:  root.ID,
	}
	err := store.CreateWorkspace(ws)

	ws, err = store.GetWorkspaceByOwnerAndName(owner.ID, "photos")
	all, err := store.ListWorkspacesByRoot(root.ID)

Crawl rounds:

	round, created, err := store.OpenCrawlRound(ws.ID, &types.CrawlRound{
		ID:          uuid.NewString(),
		WorkspaceID: ws.ID,
		StartTime:   time.Now().UTC(),
	})
	round, err = store.AdvanceCrawlRound(round.ID, int64(len(docs)), size, lastKey, done)

# Design Patterns

Filter Pattern:
  - List all, filter in memory (ListWorkspacesByOwner, ListRootsByBucket)
  - Simple implementation for broker-scale datasets
  - Future: Secondary indexes for performance

Idempotent Deletes:
  - Delete returns no error if key doesn't exist
  - Safe to call during cascades

Error Wrapping:
  - All errors wrapped with context: fmt.Errorf("op failed: %w", err)
  - Sentinel errors from errdefs preserved for API status mapping

# See Also

  - pkg/broker for the services that compose these primitives
  - pkg/types for all entity definitions
  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage
