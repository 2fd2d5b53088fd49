package types

import "time"

// StorageNodeCreate is the request body for registering a storage node
type StorageNodeCreate struct {
	Name            string `json:"name"`
	APIURL          string `json:"api_url"`
	STSAPIURL       string `json:"sts_api_url,omitempty"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	AssumeRoleARN   string `json:"assume_role_arn,omitempty"`
}

// StorageNodeOut is the public projection of a node, credentials omitted
type StorageNodeOut struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	APIURL        string    `json:"api_url"`
	STSAPIURL     string    `json:"sts_api_url,omitempty"`
	Region        string    `json:"region"`
	AssumeRoleARN string    `json:"assume_role_arn,omitempty"`
	CreatorID     string    `json:"creator_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Out projects a node for API responses, dropping operator credentials.
func (n *StorageNode) Out() *StorageNodeOut {
	return &StorageNodeOut{
		ID:            n.ID,
		Name:          n.Name,
		APIURL:        n.APIURL,
		STSAPIURL:     n.STSAPIURL,
		Region:        n.Region,
		AssumeRoleARN: n.AssumeRoleARN,
		CreatorID:     n.CreatorID,
		CreatedAt:     n.CreatedAt,
	}
}

// WorkspaceRootCreate is the request body for registering a root
type WorkspaceRootCreate struct {
	RootType RootType `json:"root_type"`
	NodeName string   `json:"node_name"`
	Bucket   string   `json:"bucket"`
	BasePath string   `json:"base_path"`
}

// RootCredentials pairs a root with its node's operator credentials.
// Returned only to the node creator when starting a bulk import.
type RootCredentials struct {
	Root *WorkspaceRoot `json:"root"`
	Node *StorageNode   `json:"node"`
}

// WorkspaceCreate is the request body for creating a workspace. RootID and
// BasePath are set only when registering an unmanaged workspace over
// existing data; NodeName optionally pins managed placement to one node.
type WorkspaceCreate struct {
	Name     string `json:"name"`
	Public   bool   `json:"public"`
	NodeName string `json:"node_name,omitempty"`
	RootID   string `json:"root_id,omitempty"`
	BasePath string `json:"base_path,omitempty"`
}

// WorkspaceOut is a workspace joined with its owner and root for API
// responses, so clients can derive keys without extra round trips
type WorkspaceOut struct {
	Workspace
	Owner *User          `json:"owner"`
	Root  *WorkspaceRoot `json:"root"`
}

// ShareCreate is the request body for sharing a workspace. The workspace
// may be named by id or by a resolver term, the sharee by id or username.
type ShareCreate struct {
	WorkspaceID   string          `json:"workspace_id,omitempty"`
	WorkspaceName string          `json:"workspace_name,omitempty"`
	ShareeID      string          `json:"sharee_id,omitempty"`
	ShareeName    string          `json:"sharee_name,omitempty"`
	Permission    SharePermission `json:"permission"`
	Expiration    *time.Time      `json:"expiration,omitempty"`
}

// ShareUpdate is the request body for changing a share's grant
type ShareUpdate struct {
	Permission SharePermission `json:"permission"`
	Expiration *time.Time      `json:"expiration,omitempty"`
}

// S3TokenCreate is the request body for minting or reusing credentials
type S3TokenCreate struct {
	Workspaces []string `json:"workspaces"`
}

// S3TokenOut is a token joined with the node it was minted against
type S3TokenOut struct {
	S3Token
	Node *StorageNodeOut `json:"node"`
}

// S3TokenSearchRequest carries raw CLI arguments to resolve into
// workspaces and credentials
type S3TokenSearchRequest struct {
	SearchTerms []string `json:"search_terms"`
}

// S3TokenSearchMatch maps one search term to the workspace it resolved to
// and the path remainder inside that workspace
type S3TokenSearchMatch struct {
	Workspace *WorkspaceOut `json:"workspace"`
	Path      string        `json:"path"`
}

// S3TokenSearchResponse is the resolver output: credentials per node and
// the term-to-workspace mapping
type S3TokenSearchResponse struct {
	Tokens     []*S3TokenOut                 `json:"tokens"`
	Workspaces map[string]S3TokenSearchMatch `json:"workspaces"`
}

// APIKeyCreated carries the secret exactly once, at creation time
type APIKeyCreated struct {
	ID        string    `json:"id"`
	KeyID     string    `json:"key_id"`
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

// ServerInfo describes the deployment to CLI clients
type ServerInfo struct {
	PublicAddress string `json:"public_address"`
	Version       string `json:"version"`
}
