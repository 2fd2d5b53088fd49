package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holt/pkg/client"
	"github.com/cuemby/holt/pkg/types"
)

func TestObjectDocument(t *testing.T) {
	modified := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	doc := objectDocument("alice/photos", minio.ObjectInfo{
		Key:          "alice/photos/2024/sep.jpg",
		Size:         2048,
		ETag:         `"abc123"`,
		LastModified: modified,
		ContentType:  "image/jpeg",
	})

	assert.Equal(t, "2024/sep.jpg", doc.Path)
	assert.Equal(t, "sep.jpg", doc.Filename)
	assert.Equal(t, ".jpg", doc.Extension)
	assert.Equal(t, "abc123", doc.ETag)
	assert.Equal(t, int64(2048), doc.Size)
	assert.Equal(t, modified, doc.Time)
	assert.Equal(t, "image/jpeg", doc.ContentType)
}

func TestObjectDocumentWithoutExtension(t *testing.T) {
	doc := objectDocument("alice/photos", minio.ObjectInfo{Key: "alice/photos/README"})

	assert.Equal(t, "README", doc.Path)
	assert.Equal(t, "README", doc.Filename)
	assert.Empty(t, doc.Extension)
}

func TestResolveWorkspaceByID(t *testing.T) {
	id := "7b9e6d58-32a1-4b8e-9c5f-06d0a1b2c3d4"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/workspace/"+id, r.URL.Path)
		json.NewEncoder(w).Encode(&types.WorkspaceOut{
			Workspace: types.Workspace{ID: id, Name: "photos"},
		})
	}))
	defer ts.Close()

	ws, err := resolveWorkspace(client.New(ts.URL, ""), id)
	require.NoError(t, err)
	assert.Equal(t, "photos", ws.Name)
}

func TestResolveWorkspaceByName(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/workspace", r.URL.Path)
		require.Equal(t, "photos", r.URL.Query().Get("name"))
		json.NewEncoder(w).Encode([]*types.WorkspaceOut{
			{Workspace: types.Workspace{ID: "ws-1", Name: "photos"}},
		})
	}))
	defer ts.Close()

	ws, err := resolveWorkspace(client.New(ts.URL, ""), "photos")
	require.NoError(t, err)
	assert.Equal(t, "ws-1", ws.ID)
}

func TestResolveWorkspaceAmbiguousName(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*types.WorkspaceOut{
			{Workspace: types.Workspace{ID: "ws-1", Name: "photos"}},
			{Workspace: types.Workspace{ID: "ws-2", Name: "photos"}},
		})
	}))
	defer ts.Close()

	_, err := resolveWorkspace(client.New(ts.URL, ""), "photos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple workspaces")
}

func TestResolveWorkspaceNoMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*types.WorkspaceOut{})
	}))
	defer ts.Close()

	_, err := resolveWorkspace(client.New(ts.URL, ""), "photos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workspace named")
}
