package broker

import (
	"context"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holt/pkg/types"
)

func TestNodeCreate_Validation(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")

	cases := []struct {
		name string
		req  types.StorageNodeCreate
	}{
		{"empty name", types.StorageNodeCreate{APIURL: "http://m:9000", AccessKeyID: "a", SecretAccessKey: "s"}},
		{"bad name", types.StorageNodeCreate{Name: "no spaces", APIURL: "http://m:9000", AccessKeyID: "a", SecretAccessKey: "s"}},
		{"missing url", types.StorageNodeCreate{Name: "minio", AccessKeyID: "a", SecretAccessKey: "s"}},
		{"missing access key", types.StorageNodeCreate{Name: "minio", APIURL: "http://m:9000", SecretAccessKey: "s"}},
		{"missing secret", types.StorageNodeCreate{Name: "minio", APIURL: "http://m:9000", AccessKeyID: "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.broker.NodeCreate(op, &tc.req)
			assert.True(t, errdefs.IsInvalidArgument(err), "expected invalid argument, got %v", err)
		})
	}
}

func TestNodeCreate_DuplicateName(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")

	_, err := f.broker.NodeCreate(op, &types.StorageNodeCreate{
		Name:            "minio-a",
		APIURL:          "http://other.local:9000",
		AccessKeyID:     "a",
		SecretAccessKey: "s",
	})
	assert.True(t, errdefs.IsAlreadyExists(err))
}

func TestNodeList(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")
	f.node(op, "minio-b")

	nodes, err := f.broker.NodeList()
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestNodeDelete_CreatorOnly(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	other := f.user("other")
	node := f.node(op, "minio-a")

	err := f.broker.NodeDelete(other, node.ID)
	assert.True(t, errdefs.IsPermissionDenied(err))

	require.NoError(t, f.broker.NodeDelete(op, node.ID))
	_, err = f.store.GetNode(node.ID)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestNodeDelete_Cascades(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	node := f.node(op, "minio-a")
	root := f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(op, "photos", false)
	share := f.share(op, f.user("bob"), ws.ID, types.SharePermissionRead)

	_, err := f.broker.TokenCreate(context.Background(), op, []string{ws.ID})
	require.NoError(t, err)

	require.NoError(t, f.broker.NodeDelete(op, node.ID))

	_, err = f.store.GetRoot(root.ID)
	assert.True(t, errdefs.IsNotFound(err))
	_, err = f.store.GetWorkspace(ws.ID)
	assert.True(t, errdefs.IsNotFound(err))
	_, err = f.store.GetShare(share.ID)
	assert.True(t, errdefs.IsNotFound(err))

	tokens, err := f.store.ListTokensByOwner(op.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
