package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/holt/pkg/types"
)

var (
	// Bucket names
	bucketUsers       = []byte("users")
	bucketAPIKeys     = []byte("api_keys")
	bucketNodes       = []byte("nodes")
	bucketRoots       = []byte("roots")
	bucketWorkspaces  = []byte("workspaces")
	bucketShares      = []byte("shares")
	bucketTokens      = []byte("tokens")
	bucketRootIndexes = []byte("root_indexes")
	bucketCrawlRounds = []byte("crawl_rounds")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "holt.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketUsers,
			bucketAPIKeys,
			bucketNodes,
			bucketRoots,
			bucketWorkspaces,
			bucketShares,
			bucketTokens,
			bucketRootIndexes,
			bucketCrawlRounds,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// put marshals an entity into a bucket under its ID
func put(tx *bolt.Tx, bucket []byte, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(id), data)
}

// User operations

func (s *BoltStore) CreateUser(user *types.User) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var existing types.User
			if err := json.Unmarshal(v, &existing); err != nil {
				continue
			}
			if strings.EqualFold(existing.Username, user.Username) {
				return fmt.Errorf("username %q already taken: %w", user.Username, errdefs.ErrAlreadyExists)
			}
			if strings.EqualFold(existing.Email, user.Email) {
				return fmt.Errorf("email %q already registered: %w", user.Email, errdefs.ErrAlreadyExists)
			}
		}
		return put(tx, bucketUsers, user.ID, user)
	})
}

func (s *BoltStore) GetUser(id string) (*types.User, error) {
	var user types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("user %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *BoltStore) GetUserByUsername(username string) (*types.User, error) {
	var found *types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketUsers).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var user types.User
			if err := json.Unmarshal(v, &user); err != nil {
				continue
			}
			if strings.EqualFold(user.Username, username) {
				found = &user
				return nil
			}
		}
		return fmt.Errorf("user %q: %w", username, errdefs.ErrNotFound)
	})
	return found, err
}

func (s *BoltStore) GetUserByEmail(email string) (*types.User, error) {
	var found *types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketUsers).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var user types.User
			if err := json.Unmarshal(v, &user); err != nil {
				continue
			}
			if strings.EqualFold(user.Email, email) {
				found = &user
				return nil
			}
		}
		return fmt.Errorf("user %q: %w", email, errdefs.ErrNotFound)
	})
	return found, err
}

func (s *BoltStore) ListUsers() ([]*types.User, error) {
	var users []*types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			var user types.User
			if err := json.Unmarshal(v, &user); err != nil {
				return err
			}
			users = append(users, &user)
			return nil
		})
	})
	return users, err
}

// API key operations

func (s *BoltStore) CreateAPIKey(key *types.APIKey) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAPIKeys)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var existing types.APIKey
			if err := json.Unmarshal(v, &existing); err != nil {
				continue
			}
			if existing.KeyID == key.KeyID {
				return fmt.Errorf("api key id %q already exists: %w", key.KeyID, errdefs.ErrAlreadyExists)
			}
		}
		return put(tx, bucketAPIKeys, key.ID, key)
	})
}

func (s *BoltStore) GetAPIKeyByKeyID(keyID string) (*types.APIKey, error) {
	var found *types.APIKey
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAPIKeys).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var key types.APIKey
			if err := json.Unmarshal(v, &key); err != nil {
				continue
			}
			if key.KeyID == keyID {
				found = &key
				return nil
			}
		}
		return fmt.Errorf("api key %q: %w", keyID, errdefs.ErrNotFound)
	})
	return found, err
}

func (s *BoltStore) ListAPIKeysByUser(userID string) ([]*types.APIKey, error) {
	var keys []*types.APIKey
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAPIKeys).ForEach(func(k, v []byte) error {
			var key types.APIKey
			if err := json.Unmarshal(v, &key); err != nil {
				return err
			}
			if key.UserID == userID {
				keys = append(keys, &key)
			}
			return nil
		})
	})
	return keys, err
}

func (s *BoltStore) DeleteAPIKeysByUser(userID string) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAPIKeys)
		var ids [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var key types.APIKey
			if err := json.Unmarshal(v, &key); err != nil {
				continue
			}
			if key.UserID == userID {
				ids = append(ids, append([]byte(nil), k...))
			}
		}
		for _, id := range ids {
			if err := b.Delete(id); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// Storage node operations

func (s *BoltStore) CreateNode(node *types.StorageNode) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var existing types.StorageNode
			if err := json.Unmarshal(v, &existing); err != nil {
				continue
			}
			if existing.Name == node.Name {
				return fmt.Errorf("storage node %q already exists: %w", node.Name, errdefs.ErrAlreadyExists)
			}
		}
		return put(tx, bucketNodes, node.ID, node)
	})
}

func (s *BoltStore) GetNode(id string) (*types.StorageNode, error) {
	var node types.StorageNode
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketNodes).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("storage node %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) GetNodeByName(name string) (*types.StorageNode, error) {
	var found *types.StorageNode
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketNodes).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var node types.StorageNode
			if err := json.Unmarshal(v, &node); err != nil {
				continue
			}
			if node.Name == name {
				found = &node
				return nil
			}
		}
		return fmt.Errorf("storage node %q: %w", name, errdefs.ErrNotFound)
	})
	return found, err
}

func (s *BoltStore) ListNodes() ([]*types.StorageNode, error) {
	var nodes []*types.StorageNode
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var node types.StorageNode
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).Delete([]byte(id))
	})
}

// Workspace root operations

func (s *BoltStore) CreateRoot(root *types.WorkspaceRoot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRoots)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var existing types.WorkspaceRoot
			if err := json.Unmarshal(v, &existing); err != nil {
				continue
			}
			if existing.NodeID == root.NodeID && existing.Bucket == root.Bucket && existing.BasePath == root.BasePath {
				return fmt.Errorf("root %s/%s already registered on node %s: %w",
					root.Bucket, root.BasePath, root.NodeID, errdefs.ErrAlreadyExists)
			}
		}
		return put(tx, bucketRoots, root.ID, root)
	})
}

func (s *BoltStore) GetRoot(id string) (*types.WorkspaceRoot, error) {
	var root types.WorkspaceRoot
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRoots).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("root %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &root)
	})
	if err != nil {
		return nil, err
	}
	return &root, nil
}

func (s *BoltStore) ListRoots() ([]*types.WorkspaceRoot, error) {
	var roots []*types.WorkspaceRoot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoots).ForEach(func(k, v []byte) error {
			var root types.WorkspaceRoot
			if err := json.Unmarshal(v, &root); err != nil {
				return err
			}
			roots = append(roots, &root)
			return nil
		})
	})
	return roots, err
}

func (s *BoltStore) ListRootsByNode(nodeID string) ([]*types.WorkspaceRoot, error) {
	roots, err := s.ListRoots()
	if err != nil {
		return nil, err
	}

	var filtered []*types.WorkspaceRoot
	for _, root := range roots {
		if root.NodeID == nodeID {
			filtered = append(filtered, root)
		}
	}
	return filtered, nil
}

func (s *BoltStore) ListRootsByBucket(bucket string) ([]*types.WorkspaceRoot, error) {
	roots, err := s.ListRoots()
	if err != nil {
		return nil, err
	}

	var filtered []*types.WorkspaceRoot
	for _, root := range roots {
		if root.Bucket == bucket {
			filtered = append(filtered, root)
		}
	}
	return filtered, nil
}

func (s *BoltStore) DeleteRoot(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoots).Delete([]byte(id))
	})
}

// Workspace operations

func (s *BoltStore) CreateWorkspace(ws *types.Workspace) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkspaces)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var existing types.Workspace
			if err := json.Unmarshal(v, &existing); err != nil {
				continue
			}
			if existing.OwnerID == ws.OwnerID && existing.Name == ws.Name {
				return fmt.Errorf("workspace %q already exists for owner %s: %w",
					ws.Name, ws.OwnerID, errdefs.ErrAlreadyExists)
			}
		}
		return put(tx, bucketWorkspaces, ws.ID, ws)
	})
}

func (s *BoltStore) GetWorkspace(id string) (*types.Workspace, error) {
	var ws types.Workspace
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketWorkspaces).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("workspace %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &ws)
	})
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (s *BoltStore) GetWorkspaceByOwnerAndName(ownerID, name string) (*types.Workspace, error) {
	var found *types.Workspace
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketWorkspaces).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var ws types.Workspace
			if err := json.Unmarshal(v, &ws); err != nil {
				continue
			}
			if ws.OwnerID == ownerID && ws.Name == name {
				found = &ws
				return nil
			}
		}
		return fmt.Errorf("workspace %q for owner %s: %w", name, ownerID, errdefs.ErrNotFound)
	})
	return found, err
}

func (s *BoltStore) ListWorkspaces() ([]*types.Workspace, error) {
	var workspaces []*types.Workspace
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWorkspaces).ForEach(func(k, v []byte) error {
			var ws types.Workspace
			if err := json.Unmarshal(v, &ws); err != nil {
				return err
			}
			workspaces = append(workspaces, &ws)
			return nil
		})
	})
	return workspaces, err
}

func (s *BoltStore) ListWorkspacesByOwner(ownerID string) ([]*types.Workspace, error) {
	workspaces, err := s.ListWorkspaces()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Workspace
	for _, ws := range workspaces {
		if ws.OwnerID == ownerID {
			filtered = append(filtered, ws)
		}
	}
	return filtered, nil
}

func (s *BoltStore) ListWorkspacesByRoot(rootID string) ([]*types.Workspace, error) {
	workspaces, err := s.ListWorkspaces()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Workspace
	for _, ws := range workspaces {
		if ws.RootID == rootID {
			filtered = append(filtered, ws)
		}
	}
	return filtered, nil
}

func (s *BoltStore) DeleteWorkspace(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWorkspaces).Delete([]byte(id))
	})
}

// Share operations

func (s *BoltStore) CreateShare(share *types.Share) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketShares)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var existing types.Share
			if err := json.Unmarshal(v, &existing); err != nil {
				continue
			}
			if existing.WorkspaceID == share.WorkspaceID &&
				existing.CreatorID == share.CreatorID &&
				existing.ShareeID == share.ShareeID {
				return fmt.Errorf("share of workspace %s from %s to %s already exists: %w",
					share.WorkspaceID, share.CreatorID, share.ShareeID, errdefs.ErrAlreadyExists)
			}
		}
		return put(tx, bucketShares, share.ID, share)
	})
}

func (s *BoltStore) GetShare(id string) (*types.Share, error) {
	var share types.Share
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketShares).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("share %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &share)
	})
	if err != nil {
		return nil, err
	}
	return &share, nil
}

func (s *BoltStore) listShares(match func(*types.Share) bool) ([]*types.Share, error) {
	var shares []*types.Share
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketShares).ForEach(func(k, v []byte) error {
			var share types.Share
			if err := json.Unmarshal(v, &share); err != nil {
				return err
			}
			if match(&share) {
				shares = append(shares, &share)
			}
			return nil
		})
	})
	return shares, err
}

func (s *BoltStore) ListSharesByWorkspace(workspaceID string) ([]*types.Share, error) {
	return s.listShares(func(sh *types.Share) bool { return sh.WorkspaceID == workspaceID })
}

func (s *BoltStore) ListSharesBySharee(shareeID string) ([]*types.Share, error) {
	return s.listShares(func(sh *types.Share) bool { return sh.ShareeID == shareeID })
}

func (s *BoltStore) ListSharesByUser(userID string) ([]*types.Share, error) {
	return s.listShares(func(sh *types.Share) bool {
		return sh.CreatorID == userID || sh.ShareeID == userID
	})
}

func (s *BoltStore) UpdateShare(share *types.Share) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketShares)
		if b.Get([]byte(share.ID)) == nil {
			return fmt.Errorf("share %s: %w", share.ID, errdefs.ErrNotFound)
		}
		return put(tx, bucketShares, share.ID, share)
	})
}

func (s *BoltStore) DeleteShare(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketShares).Delete([]byte(id))
	})
}

// S3 token operations

func (s *BoltStore) CreateToken(token *types.S3Token) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketTokens, token.ID, token)
	})
}

func (s *BoltStore) GetToken(id string) (*types.S3Token, error) {
	var token types.S3Token
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTokens).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("token %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &token)
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *BoltStore) ListTokens() ([]*types.S3Token, error) {
	var tokens []*types.S3Token
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).ForEach(func(k, v []byte) error {
			var token types.S3Token
			if err := json.Unmarshal(v, &token); err != nil {
				return err
			}
			tokens = append(tokens, &token)
			return nil
		})
	})
	return tokens, err
}

func (s *BoltStore) ListTokensByOwner(ownerID string) ([]*types.S3Token, error) {
	var tokens []*types.S3Token
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).ForEach(func(k, v []byte) error {
			var token types.S3Token
			if err := json.Unmarshal(v, &token); err != nil {
				return err
			}
			if token.OwnerID == ownerID {
				tokens = append(tokens, &token)
			}
			return nil
		})
	})
	return tokens, err
}

func (s *BoltStore) DeleteToken(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).Delete([]byte(id))
	})
}

// deleteTokens removes every token matching the predicate and reports how
// many were dropped.
func (s *BoltStore) deleteTokens(match func(*types.S3Token) bool) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		var ids [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var token types.S3Token
			if err := json.Unmarshal(v, &token); err != nil {
				continue
			}
			if match(&token) {
				ids = append(ids, append([]byte(nil), k...))
			}
		}
		for _, id := range ids {
			if err := b.Delete(id); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

func (s *BoltStore) DeleteTokensByOwner(ownerID string) (int, error) {
	return s.deleteTokens(func(t *types.S3Token) bool { return t.OwnerID == ownerID })
}

func (s *BoltStore) DeleteTokensByWorkspace(workspaceID string) (int, error) {
	return s.deleteTokens(func(t *types.S3Token) bool {
		for _, id := range t.WorkspaceIDs {
			if id == workspaceID {
				return true
			}
		}
		return false
	})
}

func (s *BoltStore) DeleteTokensByRoot(rootID string) (int, error) {
	return s.deleteTokens(func(t *types.S3Token) bool {
		for _, id := range t.RootIDs {
			if id == rootID {
				return true
			}
		}
		return false
	})
}

// Root index operations

func (s *BoltStore) CreateRootIndex(idx *types.RootIndex) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRootIndexes)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var existing types.RootIndex
			if err := json.Unmarshal(v, &existing); err != nil {
				continue
			}
			if existing.RootID == idx.RootID {
				return fmt.Errorf("root %s already indexed: %w", idx.RootID, errdefs.ErrAlreadyExists)
			}
		}
		return put(tx, bucketRootIndexes, idx.ID, idx)
	})
}

func (s *BoltStore) GetRootIndexByRoot(rootID string) (*types.RootIndex, error) {
	var found *types.RootIndex
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRootIndexes).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var idx types.RootIndex
			if err := json.Unmarshal(v, &idx); err != nil {
				continue
			}
			if idx.RootID == rootID {
				found = &idx
				return nil
			}
		}
		return fmt.Errorf("root index for root %s: %w", rootID, errdefs.ErrNotFound)
	})
	return found, err
}

func (s *BoltStore) CountRootIndexes() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketRootIndexes).Stats().KeyN
		return nil
	})
	return count, err
}

func (s *BoltStore) DeleteRootIndex(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRootIndexes).Delete([]byte(id))
	})
}

// Crawl round operations

// latestRound scans a transaction for the most recently started round of a
// workspace. Returns nil when the workspace has never been crawled.
func latestRound(tx *bolt.Tx, workspaceID string) (*types.CrawlRound, error) {
	var latest *types.CrawlRound
	c := tx.Bucket(bucketCrawlRounds).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var round types.CrawlRound
		if err := json.Unmarshal(v, &round); err != nil {
			return nil, err
		}
		if round.WorkspaceID != workspaceID {
			continue
		}
		if latest == nil || round.StartTime.After(latest.StartTime) {
			r := round
			latest = &r
		}
	}
	return latest, nil
}

// OpenCrawlRound returns the round new batches should target. If the latest
// round is still open it is returned unchanged; otherwise next is persisted
// and returned. The check and the insert share one write transaction so two
// concurrent crawlers cannot both open a round.
func (s *BoltStore) OpenCrawlRound(workspaceID string, next *types.CrawlRound) (*types.CrawlRound, bool, error) {
	var round *types.CrawlRound
	created := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		latest, err := latestRound(tx, workspaceID)
		if err != nil {
			return err
		}
		if latest != nil && latest.Open() {
			round = latest
			return nil
		}
		if err := put(tx, bucketCrawlRounds, next.ID, next); err != nil {
			return err
		}
		round = next
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return round, created, nil
}

func (s *BoltStore) LatestCrawlRound(workspaceID string) (*types.CrawlRound, error) {
	var found *types.CrawlRound
	err := s.db.View(func(tx *bolt.Tx) error {
		latest, err := latestRound(tx, workspaceID)
		if err != nil {
			return err
		}
		if latest == nil {
			return fmt.Errorf("no crawl round for workspace %s: %w", workspaceID, errdefs.ErrNotFound)
		}
		found = latest
		return nil
	})
	return found, err
}

// AdvanceCrawlRound applies one batch's accounting to an open round.
// Closed rounds are rejected so late batches cannot corrupt totals.
func (s *BoltStore) AdvanceCrawlRound(roundID string, objects, sizeBytes int64, lastIndexedKey string, succeeded bool) (*types.CrawlRound, error) {
	var round types.CrawlRound
	err := s.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCrawlRounds).Get([]byte(roundID))
		if data == nil {
			return fmt.Errorf("crawl round %s: %w", roundID, errdefs.ErrNotFound)
		}
		if err := json.Unmarshal(data, &round); err != nil {
			return err
		}
		if round.Succeeded {
			return fmt.Errorf("crawl round %s already succeeded: %w", roundID, errdefs.ErrFailedPrecondition)
		}

		round.TotalObjects += objects
		round.TotalSizeBytes += sizeBytes
		if lastIndexedKey != "" {
			round.LastIndexedKey = lastIndexedKey
		}
		if succeeded {
			now := time.Now().UTC()
			round.Succeeded = true
			round.EndTime = &now
		}
		return put(tx, bucketCrawlRounds, round.ID, &round)
	})
	if err != nil {
		return nil, err
	}
	return &round, nil
}
