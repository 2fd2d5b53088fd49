package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuemby/holt/pkg/types"
)

// requestTimeout bounds every API call. Bulk index submissions carry
// whole crawl batches and get a wider window.
const (
	requestTimeout = 10 * time.Second
	bulkTimeout    = 2 * time.Minute
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client wraps the Holt HTTP API for CLI usage.
type Client struct {
	baseURL    string
	credential string
	http       *http.Client
}

// New creates a client for the given server. The credential is either an
// API key pair in "key_id:secret" form or a session token from a browser
// login; it may be empty for unauthenticated endpoints.
func New(baseURL, credential string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		credential: credential,
		http:       &http.Client{},
	}
}

func (c *Client) do(method, path string, body, out interface{}) error {
	return c.doTimeout(method, path, body, out, requestTimeout)
}

func (c *Client) doTimeout(method, path string, body, out interface{}, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credential != "" {
		if keyID, secret, found := strings.Cut(c.credential, ":"); found {
			req.SetBasicAuth(keyID, secret)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.credential)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var remote struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&remote); err == nil && remote.Message != "" {
			apiErr.Message = remote.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Info returns the server's public address and version.
func (c *Client) Info() (*types.ServerInfo, error) {
	info := &types.ServerInfo{}
	if err := c.do(http.MethodGet, "/api/info", nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// Me returns the authenticated user.
func (c *Client) Me() (*types.User, error) {
	user := &types.User{}
	if err := c.do(http.MethodGet, "/api/users/me", nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Users lists all users.
func (c *Client) Users() ([]*types.User, error) {
	var users []*types.User
	if err := c.do(http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// NodeCreate registers a storage node.
func (c *Client) NodeCreate(req *types.StorageNodeCreate) (*types.StorageNodeOut, error) {
	node := &types.StorageNodeOut{}
	if err := c.do(http.MethodPost, "/api/node", req, node); err != nil {
		return nil, err
	}
	return node, nil
}

// NodeList lists registered storage nodes.
func (c *Client) NodeList() ([]*types.StorageNodeOut, error) {
	var nodes []*types.StorageNodeOut
	if err := c.do(http.MethodGet, "/api/node", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// NodeDelete removes a storage node.
func (c *Client) NodeDelete(id string) error {
	return c.do(http.MethodDelete, "/api/node/"+id, nil, nil)
}

// RootCreate registers a workspace root.
func (c *Client) RootCreate(req *types.WorkspaceRootCreate) (*types.WorkspaceRoot, error) {
	root := &types.WorkspaceRoot{}
	if err := c.do(http.MethodPost, "/api/root", req, root); err != nil {
		return nil, err
	}
	return root, nil
}

// RootList lists roots, optionally filtered by node name.
func (c *Client) RootList(nodeName string) ([]*types.WorkspaceRoot, error) {
	path := "/api/root"
	if nodeName != "" {
		path += "?node=" + url.QueryEscape(nodeName)
	}
	var roots []*types.WorkspaceRoot
	if err := c.do(http.MethodGet, path, nil, &roots); err != nil {
		return nil, err
	}
	return roots, nil
}

// RootDelete removes a root.
func (c *Client) RootDelete(id string) error {
	return c.do(http.MethodDelete, "/api/root/"+id, nil, nil)
}

// RootIndexCreate enables search indexing for a root.
func (c *Client) RootIndexCreate(rootID string) (*types.RootIndex, error) {
	record := &types.RootIndex{}
	if err := c.do(http.MethodPost, "/api/root/"+rootID+"/index", nil, record); err != nil {
		return nil, err
	}
	return record, nil
}

// RootIndexDelete disables search indexing for a root.
func (c *Client) RootIndexDelete(rootID string) error {
	return c.do(http.MethodDelete, "/api/root/"+rootID+"/index", nil, nil)
}

// RootImport returns operator credentials for crawling an unmanaged root.
func (c *Client) RootImport(rootID string) (*types.RootCredentials, error) {
	creds := &types.RootCredentials{}
	if err := c.do(http.MethodPost, "/api/root/"+rootID+"/import", nil, creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// WorkspaceFilter narrows a workspace search.
type WorkspaceFilter struct {
	Name    string
	Like    string
	OwnerID string
	Public  bool
}

// WorkspaceSearch lists workspaces visible to the caller.
func (c *Client) WorkspaceSearch(filter WorkspaceFilter) ([]*types.WorkspaceOut, error) {
	q := url.Values{}
	if filter.Name != "" {
		q.Set("name", filter.Name)
	}
	if filter.Like != "" {
		q.Set("like", filter.Like)
	}
	if filter.OwnerID != "" {
		q.Set("owner_id", filter.OwnerID)
	}
	if filter.Public {
		q.Set("public", "true")
	}
	path := "/api/workspace"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var workspaces []*types.WorkspaceOut
	if err := c.do(http.MethodGet, path, nil, &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// WorkspaceCreate creates a workspace.
func (c *Client) WorkspaceCreate(req *types.WorkspaceCreate) (*types.WorkspaceOut, error) {
	ws := &types.WorkspaceOut{}
	if err := c.do(http.MethodPost, "/api/workspace", req, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// WorkspaceGet fetches one workspace.
func (c *Client) WorkspaceGet(id string) (*types.WorkspaceOut, error) {
	ws := &types.WorkspaceOut{}
	if err := c.do(http.MethodGet, "/api/workspace/"+id, nil, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// WorkspaceDelete removes a workspace.
func (c *Client) WorkspaceDelete(id string) error {
	return c.do(http.MethodDelete, "/api/workspace/"+id, nil, nil)
}

// CrawlCreate opens or resumes the crawl round for a workspace.
func (c *Client) CrawlCreate(workspaceID string) (*types.CrawlRound, error) {
	round := &types.CrawlRound{}
	if err := c.do(http.MethodPost, "/api/workspace/"+workspaceID+"/crawl", nil, round); err != nil {
		return nil, err
	}
	return round, nil
}

// BulkIndex submits a crawl batch.
func (c *Client) BulkIndex(workspaceID string, req *types.BulkIndexRequest) (*types.BulkIndexResponse, error) {
	resp := &types.BulkIndexResponse{}
	if err := c.doTimeout(http.MethodPost, "/api/workspace/"+workspaceID+"/bulk_index", req, resp, bulkTimeout); err != nil {
		return nil, err
	}
	return resp, nil
}

// ShareCreate shares a workspace with another user.
func (c *Client) ShareCreate(req *types.ShareCreate) (*types.Share, error) {
	share := &types.Share{}
	if err := c.do(http.MethodPost, "/api/workspace/share", req, share); err != nil {
		return nil, err
	}
	return share, nil
}

// ShareList lists shares the caller created or received.
func (c *Client) ShareList() ([]*types.Share, error) {
	var shares []*types.Share
	if err := c.do(http.MethodGet, "/api/workspace/share", nil, &shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// ShareUpdate changes a share's permission or expiration.
func (c *Client) ShareUpdate(id string, req *types.ShareUpdate) (*types.Share, error) {
	share := &types.Share{}
	if err := c.do(http.MethodPut, "/api/workspace/share/"+id, req, share); err != nil {
		return nil, err
	}
	return share, nil
}

// ShareDelete revokes a share.
func (c *Client) ShareDelete(id string) error {
	return c.do(http.MethodDelete, "/api/workspace/share/"+id, nil, nil)
}

// TokenCreate mints or reuses credentials for the given workspaces.
func (c *Client) TokenCreate(workspaceIDs []string) ([]*types.S3TokenOut, error) {
	var tokens []*types.S3TokenOut
	if err := c.do(http.MethodPost, "/api/token", &types.S3TokenCreate{Workspaces: workspaceIDs}, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// TokenList lists the caller's tokens.
func (c *Client) TokenList() ([]*types.S3TokenOut, error) {
	var tokens []*types.S3TokenOut
	if err := c.do(http.MethodGet, "/api/token", nil, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// TokenDelete revokes one token.
func (c *Client) TokenDelete(id string) error {
	return c.do(http.MethodDelete, "/api/token/"+id, nil, nil)
}

// TokenDeleteAll revokes all of the caller's tokens and reports how many.
func (c *Client) TokenDeleteAll() (int, error) {
	var count int
	if err := c.do(http.MethodDelete, "/api/token", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// TokenSearch resolves path terms into workspaces and credentials.
func (c *Client) TokenSearch(terms []string) (*types.S3TokenSearchResponse, error) {
	resp := &types.S3TokenSearchResponse{}
	if err := c.do(http.MethodPost, "/api/token/search", &types.S3TokenSearchRequest{SearchTerms: terms}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// APIKeyCreate issues an API key. The secret is only returned here.
func (c *Client) APIKeyCreate() (*types.APIKeyCreated, error) {
	key := &types.APIKeyCreated{}
	if err := c.do(http.MethodPost, "/api/apikey", nil, key); err != nil {
		return nil, err
	}
	return key, nil
}

// APIKeyList lists the caller's API keys.
func (c *Client) APIKeyList() ([]*types.APIKey, error) {
	var keys []*types.APIKey
	if err := c.do(http.MethodGet, "/api/apikey", nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// APIKeyDeleteAll removes all of the caller's API keys.
func (c *Client) APIKeyDeleteAll() (int, error) {
	var count int
	if err := c.do(http.MethodDelete, "/api/apikey", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Search runs a content search and returns the raw engine envelope.
func (c *Client) Search(query string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(http.MethodPost, "/api/search", &types.SearchRequest{Q: query}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
