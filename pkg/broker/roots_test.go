package broker

import (
	"context"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holt/pkg/types"
)

// apiError mimics an S3 service error with a specific code.
type apiError struct{ code string }

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func TestRootCreate_ProvisionsBucket(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")

	root, err := f.broker.RootCreate(context.Background(), op, &types.WorkspaceRootCreate{
		NodeName: "minio-a",
		Bucket:   "/holt-data/",
		BasePath: "/scratch/",
	})
	require.NoError(t, err)

	assert.Equal(t, types.RootTypePrivate, root.RootType, "type defaults to private")
	assert.Equal(t, "holt-data", root.Bucket)
	assert.Equal(t, "scratch", root.BasePath)
	assert.Equal(t, []string{"holt-data"}, f.s3.buckets)
}

func TestRootCreate_OperatorOnly(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")

	_, err := f.broker.RootCreate(context.Background(), f.user("mallory"), &types.WorkspaceRootCreate{
		NodeName: "minio-a",
		Bucket:   "holt-data",
	})
	assert.True(t, errdefs.IsPermissionDenied(err))
}

func TestRootCreate_BucketAlreadyOwned(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")
	f.s3.createErr = &apiError{code: "BucketAlreadyOwnedByYou"}

	_, err := f.broker.RootCreate(context.Background(), op, &types.WorkspaceRootCreate{
		NodeName: "minio-a",
		Bucket:   "holt-data",
	})
	assert.NoError(t, err)

	// MinIO uses the generic code for the same situation.
	f.s3.createErr = &apiError{code: "BucketAlreadyExists"}
	_, err = f.broker.RootCreate(context.Background(), op, &types.WorkspaceRootCreate{
		NodeName: "minio-a",
		Bucket:   "holt-other",
	})
	assert.NoError(t, err)
}

func TestRootCreate_BucketFailureAborts(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")
	f.s3.createErr = &apiError{code: "AccessDenied"}

	_, err := f.broker.RootCreate(context.Background(), op, &types.WorkspaceRootCreate{
		NodeName: "minio-a",
		Bucket:   "holt-data",
	})
	assert.True(t, errdefs.IsUnavailable(err))

	roots, err := f.store.ListRoots()
	require.NoError(t, err)
	assert.Empty(t, roots, "no root record without its bucket")
}

func TestRootCreate_InvalidType(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")

	_, err := f.broker.RootCreate(context.Background(), op, &types.WorkspaceRootCreate{
		NodeName: "minio-a",
		Bucket:   "holt-data",
		RootType: "shiny",
	})
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestRootList_ByNode(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")
	f.node(op, "minio-b")
	f.root(op, "minio-a", types.RootTypePrivate, "bucket-a")
	f.root(op, "minio-b", types.RootTypePrivate, "bucket-b")

	all, err := f.broker.RootList("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := f.broker.RootList("minio-b")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "bucket-b", scoped[0].Bucket)
}

func TestRootDelete_BlockedByWorkspaces(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")
	root := f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(op, "photos", false)

	err := f.broker.RootDelete(op, root.ID)
	assert.True(t, errdefs.IsFailedPrecondition(err))

	require.NoError(t, f.broker.WorkspaceDelete(op, ws.ID))
	require.NoError(t, f.broker.RootDelete(op, root.ID))

	_, err = f.store.GetRoot(root.ID)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestRootDelete_OperatorOnly(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")
	root := f.root(op, "minio-a", types.RootTypePrivate, "holt-data")

	err := f.broker.RootDelete(f.user("mallory"), root.ID)
	assert.True(t, errdefs.IsPermissionDenied(err))
}

func TestRootImport_ReturnsPlaintextCredentials(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")
	root := f.root(op, "minio-a", types.RootTypeUnmanaged, "legacy-data")

	creds, err := f.broker.RootImport(op, root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, creds.Root.ID)
	assert.Equal(t, "minioadmin", creds.Node.SecretAccessKey)

	_, err = f.broker.RootImport(f.user("mallory"), root.ID)
	assert.True(t, errdefs.IsPermissionDenied(err))
}
