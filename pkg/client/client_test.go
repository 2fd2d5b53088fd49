package client

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holt/pkg/types"
)

// stubServer runs handler and returns a client pointed at it.
func stubServer(t *testing.T, credential string, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL, credential)
}

func TestKeyPairSentAsBasicAuth(t *testing.T) {
	c := stubServer(t, "AKHOLT123:topsecret", func(w http.ResponseWriter, r *http.Request) {
		keyID, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AKHOLT123", keyID)
		assert.Equal(t, "topsecret", secret)
		json.NewEncoder(w).Encode(&types.User{ID: "u1"})
	})

	user, err := c.Me()
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
}

func TestSessionTokenSentAsBearer(t *testing.T) {
	c := stubServer(t, "eyJhbGciOiJIUzI1NiJ9.e30.sig", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer eyJhbGciOiJIUzI1NiJ9.e30.sig", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(&types.User{ID: "u1"})
	})

	_, err := c.Me()
	require.NoError(t, err)
}

func TestEmptyCredentialSendsNoHeader(t *testing.T) {
	c := stubServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(&types.ServerInfo{PublicAddress: "http://holt.test"})
	})

	info, err := c.Info()
	require.NoError(t, err)
	assert.Equal(t, "http://holt.test", info.PublicAddress)
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	c := stubServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"workspace photos already exists"}`)
	})

	_, err := c.WorkspaceCreate(&types.WorkspaceCreate{Name: "photos"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "workspace photos already exists", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "409")
}

func TestAPIErrorWithoutBodyFallsBack(t *testing.T) {
	c := stubServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Search("anything")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestWorkspaceSearchBuildsQuery(t *testing.T) {
	c := stubServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workspace", r.URL.Path)
		assert.Equal(t, "photos", r.URL.Query().Get("name"))
		assert.Equal(t, "true", r.URL.Query().Get("public"))
		json.NewEncoder(w).Encode([]*types.WorkspaceOut{})
	})

	_, err := c.WorkspaceSearch(WorkspaceFilter{Name: "photos", Public: true})
	require.NoError(t, err)
}

func TestRootListEscapesNodeName(t *testing.T) {
	c := stubServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "minio east", r.URL.Query().Get("node"))
		json.NewEncoder(w).Encode([]*types.WorkspaceRoot{})
	})

	_, err := c.RootList("minio east")
	require.NoError(t, err)
}

func TestTokenDeleteAllDecodesCount(t *testing.T) {
	c := stubServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/token", r.URL.Path)
		io.WriteString(w, "3\n")
	})

	count, err := c.TokenDeleteAll()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestBulkIndexRoundTrip(t *testing.T) {
	c := stubServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/workspace/ws1/bulk_index", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req types.BulkIndexRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Documents, 2)
		assert.True(t, req.Succeeded)

		json.NewEncoder(w).Encode(&types.BulkIndexResponse{Count: 2})
	})

	resp, err := c.BulkIndex("ws1", &types.BulkIndexRequest{
		Documents: []types.IndexDocument{{Path: "a"}, {Path: "b"}},
		Succeeded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
}

func TestSearchReturnsRawEnvelope(t *testing.T) {
	envelope := `{"hits":{"hits":[{"_source":{"path":"sep.jpg"}}]}}`
	c := stubServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		var req types.SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "autumn", req.Q)
		io.WriteString(w, envelope)
	})

	raw, err := c.Search("autumn")
	require.NoError(t, err)
	assert.JSONEq(t, envelope, string(raw))
}

func TestNoContentResponses(t *testing.T) {
	c := stubServer(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.NodeDelete("n1"))
	require.NoError(t, c.ShareDelete("s1"))
}
