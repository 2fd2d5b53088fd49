package types

import (
	"encoding/json"
	"time"
)

// User represents an authenticated account, provisioned on first OIDC login
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// StorageNode represents a registered S3-compatible endpoint
type StorageNode struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	APIURL    string `json:"api_url"`
	STSAPIURL string `json:"sts_api_url,omitempty"`
	Region    string `json:"region"`

	// Operator credentials. SecretAccessKey is sealed with AES-256-GCM
	// before it reaches the store and is never serialized to API clients.
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`

	AssumeRoleARN string    `json:"assume_role_arn,omitempty"`
	CreatorID     string    `json:"creator_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// RootType defines the naming scheme and default visibility of a root
type RootType string

const (
	RootTypePublic    RootType = "public"
	RootTypePrivate   RootType = "private"
	RootTypeUnmanaged RootType = "unmanaged"
)

// WorkspaceRoot represents an operator-controlled (bucket, base_path) region
// of a storage node under which workspaces are placed
type WorkspaceRoot struct {
	ID        string    `json:"id"`
	RootType  RootType  `json:"root_type"`
	NodeID    string    `json:"node_id"`
	Bucket    string    `json:"bucket"`
	BasePath  string    `json:"base_path"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Workspace represents a named prefix in a root owned by one user.
// A non-empty BasePath marks the workspace unmanaged: it points at
// pre-existing data and its key ignores the owner's username.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	RootID    string    `json:"root_id"`
	BasePath  string    `json:"base_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Managed reports whether the workspace key is derived from the owner's
// username rather than a fixed base path.
func (w *Workspace) Managed() bool {
	return w.BasePath == ""
}

// SharePermission defines the access level a share grants
type SharePermission string

const (
	SharePermissionRead      SharePermission = "read"
	SharePermissionReadWrite SharePermission = "readwrite"
	SharePermissionOwn       SharePermission = "own"
)

// Share represents a grant of a workspace from its owner to another user
type Share struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	CreatorID   string          `json:"creator_id"`
	ShareeID    string          `json:"sharee_id"`
	Permission  SharePermission `json:"permission"`
	Expiration  *time.Time      `json:"expiration,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Expired reports whether the grant has lapsed. Shares without an
// expiration never expire.
func (s *Share) Expired(now time.Time) bool {
	return s.Expiration != nil && !s.Expiration.After(now)
}

// S3Token represents a minted STS credential scoped by an inline policy.
// WorkspaceIDs records the foreign workspaces the policy grants and RootIDs
// the roots covered for the owner's own workspaces; together they identify
// the constellation the token was minted for.
type S3Token struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	NodeID          string          `json:"node_id"`
	AccessKeyID     string          `json:"access_key_id"`
	SecretAccessKey string          `json:"secret_access_key"`
	SessionToken    string          `json:"session_token"`
	Expiration      time.Time       `json:"expiration"`
	Policy          json.RawMessage `json:"policy"`
	WorkspaceIDs    []string        `json:"workspace_ids"`
	RootIDs         []string        `json:"root_ids"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Expired reports whether the token's credentials are past their lifetime.
func (t *S3Token) Expired(now time.Time) bool {
	return !t.Expiration.After(now)
}

// APIKey represents a long-lived credential pair for programmatic access.
// Only the SHA-256 hash of the secret is persisted.
type APIKey struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	KeyID      string    `json:"key_id"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// IndexType identifies a search index schema family
type IndexType string

const (
	// IndexTypeDefault is the general object metadata index.
	IndexTypeDefault IndexType = "default"
)

// RootIndex represents the opt-in of a root into a search index
type RootIndex struct {
	ID        string    `json:"id"`
	RootID    string    `json:"root_id"`
	IndexType IndexType `json:"index_type"`
	CreatedAt time.Time `json:"created_at"`
}

// CrawlRound represents one ingest cycle over a workspace. At most one
// round per workspace is open (Succeeded == false) at a time.
type CrawlRound struct {
	ID             string     `json:"id"`
	WorkspaceID    string     `json:"workspace_id"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Succeeded      bool       `json:"succeeded"`
	TotalObjects   int64      `json:"total_objects"`
	TotalSizeBytes int64      `json:"total_size_bytes"`
	LastIndexedKey string     `json:"last_indexed_key"`
}

// Open reports whether the round still accepts batches.
func (r *CrawlRound) Open() bool {
	return !r.Succeeded
}
