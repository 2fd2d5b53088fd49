package storage

import (
	"github.com/cuemby/holt/pkg/types"
)

// Store defines the interface for broker state storage
// This will be implemented by BoltDB-backed storage
type Store interface {
	// Users
	CreateUser(user *types.User) error
	GetUser(id string) (*types.User, error)
	GetUserByUsername(username string) (*types.User, error)
	GetUserByEmail(email string) (*types.User, error)
	ListUsers() ([]*types.User, error)

	// API keys
	CreateAPIKey(key *types.APIKey) error
	GetAPIKeyByKeyID(keyID string) (*types.APIKey, error)
	ListAPIKeysByUser(userID string) ([]*types.APIKey, error)
	DeleteAPIKeysByUser(userID string) (int, error)

	// Storage nodes
	CreateNode(node *types.StorageNode) error
	GetNode(id string) (*types.StorageNode, error)
	GetNodeByName(name string) (*types.StorageNode, error)
	ListNodes() ([]*types.StorageNode, error)
	DeleteNode(id string) error

	// Workspace roots
	CreateRoot(root *types.WorkspaceRoot) error
	GetRoot(id string) (*types.WorkspaceRoot, error)
	ListRoots() ([]*types.WorkspaceRoot, error)
	ListRootsByNode(nodeID string) ([]*types.WorkspaceRoot, error)
	ListRootsByBucket(bucket string) ([]*types.WorkspaceRoot, error)
	DeleteRoot(id string) error

	// Workspaces
	CreateWorkspace(ws *types.Workspace) error
	GetWorkspace(id string) (*types.Workspace, error)
	GetWorkspaceByOwnerAndName(ownerID, name string) (*types.Workspace, error)
	ListWorkspaces() ([]*types.Workspace, error)
	ListWorkspacesByOwner(ownerID string) ([]*types.Workspace, error)
	ListWorkspacesByRoot(rootID string) ([]*types.Workspace, error)
	DeleteWorkspace(id string) error

	// Shares
	CreateShare(share *types.Share) error
	GetShare(id string) (*types.Share, error)
	ListSharesByWorkspace(workspaceID string) ([]*types.Share, error)
	ListSharesBySharee(shareeID string) ([]*types.Share, error)
	ListSharesByUser(userID string) ([]*types.Share, error)
	UpdateShare(share *types.Share) error
	DeleteShare(id string) error

	// S3 tokens
	CreateToken(token *types.S3Token) error
	GetToken(id string) (*types.S3Token, error)
	ListTokens() ([]*types.S3Token, error)
	ListTokensByOwner(ownerID string) ([]*types.S3Token, error)
	DeleteToken(id string) error
	DeleteTokensByOwner(ownerID string) (int, error)
	DeleteTokensByWorkspace(workspaceID string) (int, error)
	DeleteTokensByRoot(rootID string) (int, error)

	// Root indexes
	CreateRootIndex(idx *types.RootIndex) error
	GetRootIndexByRoot(rootID string) (*types.RootIndex, error)
	CountRootIndexes() (int, error)
	DeleteRootIndex(id string) error

	// Crawl rounds
	OpenCrawlRound(workspaceID string, next *types.CrawlRound) (*types.CrawlRound, bool, error)
	LatestCrawlRound(workspaceID string) (*types.CrawlRound, error)
	AdvanceCrawlRound(roundID string, objects, sizeBytes int64, lastIndexedKey string, succeeded bool) (*types.CrawlRound, error)

	// Utility
	Close() error
}
