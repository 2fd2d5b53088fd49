/*
Package types defines the core data structures used throughout Holt.

This package contains all fundamental types that represent the broker's
domain model, including users, storage nodes, workspace roots, workspaces,
shares, minted credentials, API keys, and the bookkeeping entities of the
indexing subsystem. These types are used by all other packages for state
management, API communication, and policy synthesis.

# Architecture

The types package is the foundation of Holt's data model. It defines:

  - Account primitives (users, API keys)
  - Storage topology (nodes, roots)
  - Workspace placement and sharing
  - Minted STS credentials and their constellations
  - Index registration and crawl accounting

All types are designed to be:
  - Serializable (JSON, both in the store and over HTTP)
  - Immutable where possible (use pointers for updates)
  - Self-documenting (clear field names and comments)
  - Validated (constants for enums, small predicates)

# Core Types

The main types in this package are:

Accounts:
  - User: Account provisioned on first OIDC login
  - APIKey: Long-lived credential pair; only the secret's SHA-256 hash
    is persisted

Storage Topology:
  - StorageNode: S3-compatible endpoint with operator credentials
  - WorkspaceRoot: Operator-controlled (bucket, base_path) region
  - RootType: Public, private, or unmanaged naming scheme

Workspaces:
  - Workspace: Named prefix in a root, owned by one user
  - Share: Grant of a workspace to another user
  - SharePermission: Read, readwrite, or own

Credentials:
  - S3Token: STS credentials scoped by an inline policy, tagged with the
    foreign-workspace and root sets they were minted for

Indexing:
  - RootIndex: Opt-in of a root into a search index
  - IndexType: Search index schema family (default)
  - CrawlRound: One ingest cycle over a workspace; at most one open
    round per workspace

# Wire Shapes

Request and response DTOs live in api.go. Entities that carry secrets
(StorageNode, APIKey) have projections that drop them: StorageNode.Out
omits operator credentials and the APIKey secret appears exactly once in
APIKeyCreated. Handlers must project before serializing; the raw entity
form is reserved for the store and for RootCredentials, which hands
operator material to the node creator during bulk imports.

# Relationships

	User ──owns──▶ Workspace ◀──places── WorkspaceRoot ◀──hosts── StorageNode
	  │                │
	APIKey           Share ──grants──▶ User (sharee)

	S3Token ──covers──▶ {foreign workspace set, root set}
	RootIndex ──registers──▶ WorkspaceRoot
	CrawlRound ──accounts──▶ Workspace ingest

Relations are expressed as ID references and resolved by the caller;
business logic lives in pkg/broker and pkg/index, not here.
*/
package types
