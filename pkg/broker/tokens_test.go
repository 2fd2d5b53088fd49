package broker

import (
	"context"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holt/pkg/types"
)

func TestTokenCreate_OwnPrivateWorkspace(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	f.node(op, "minio-a")
	root := f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)

	tokens, err := f.broker.TokenCreate(context.Background(), alice, []string{ws.ID})
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	tok := tokens[0]
	assert.Equal(t, 1, f.sts.calls)
	assert.Equal(t, "ASIATEST00000001", tok.AccessKeyID)
	assert.True(t, tok.Expiration.After(time.Now()))
	assert.Equal(t, []string{root.ID}, tok.RootIDs)
	assert.Empty(t, tok.WorkspaceIDs)
	assert.Equal(t, "minio-a", tok.Node.Name)
	assert.Contains(t, string(tok.Policy), `"arn:aws:s3:::holt-data/alice/*"`)
}

func TestTokenCreate_PlaceholderRoleARN(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(op, "photos", false)

	_, err := f.broker.TokenCreate(context.Background(), op, []string{ws.ID})
	require.NoError(t, err)
	require.Len(t, f.sts.roleARNs, 1)
	assert.Equal(t, "arn:xxx:xxx:xxx:xxxx", f.sts.roleARNs[0])
}

func TestTokenCreate_Reuse(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)

	first, err := f.broker.TokenCreate(context.Background(), alice, []string{ws.ID})
	require.NoError(t, err)
	second, err := f.broker.TokenCreate(context.Background(), alice, []string{ws.ID})
	require.NoError(t, err)

	assert.Equal(t, first[0].AccessKeyID, second[0].AccessKeyID)
	assert.Equal(t, 1, f.sts.calls, "no second STS round trip")
}

func TestTokenCreate_RefreshesExpiredConstellation(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)

	first, err := f.broker.TokenCreate(context.Background(), alice, []string{ws.ID})
	require.NoError(t, err)

	lapsed := first[0].S3Token
	lapsed.Expiration = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, f.store.CreateToken(&lapsed))

	second, err := f.broker.TokenCreate(context.Background(), alice, []string{ws.ID})
	require.NoError(t, err)

	assert.Equal(t, 2, f.sts.calls)
	assert.Equal(t, first[0].ID, second[0].ID, "constellation row refreshed, not duplicated")
	assert.NotEqual(t, first[0].AccessKeyID, second[0].AccessKeyID)

	all, err := f.store.ListTokensByOwner(alice.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTokenCreate_SharedForeignWorkspace(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	bob := f.user("bob")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)
	f.share(alice, bob, ws.ID, types.SharePermissionRead)

	tokens, err := f.broker.TokenCreate(context.Background(), bob, []string{ws.ID})
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	tok := tokens[0]
	assert.Equal(t, []string{ws.ID}, tok.WorkspaceIDs)
	assert.Empty(t, tok.RootIDs)
	assert.Contains(t, string(tok.Policy), `"arn:aws:s3:::holt-data/alice/photos/*"`)
	assert.Contains(t, string(tok.Policy), "s3:GetObject")
	assert.NotContains(t, string(tok.Policy), "s3:PutObject", "read share grants no writes")
}

func TestTokenCreate_ReadWriteShareGrantsWrites(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	bob := f.user("bob")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)
	f.share(alice, bob, ws.ID, types.SharePermissionReadWrite)

	tokens, err := f.broker.TokenCreate(context.Background(), bob, []string{ws.ID})
	require.NoError(t, err)
	assert.Contains(t, string(tokens[0].Policy), "s3:PutObject")
	assert.Contains(t, string(tokens[0].Policy), "s3:DeleteObject")
}

func TestTokenCreate_UnsharedForeignDenied(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	bob := f.user("bob")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)

	_, err := f.broker.TokenCreate(context.Background(), bob, []string{ws.ID})
	require.Error(t, err)
	assert.True(t, errdefs.IsPermissionDenied(err))
	assert.Contains(t, err.Error(), "user bob is not permitted to access photos")
}

func TestTokenCreate_ExpiredShareDenied(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	bob := f.user("bob")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)

	past := time.Now().UTC().Add(-time.Hour)
	_, err := f.broker.ShareCreate(alice, &types.ShareCreate{
		WorkspaceID: ws.ID,
		ShareeID:    bob.ID,
		Expiration:  &past,
	})
	require.NoError(t, err)

	_, err = f.broker.TokenCreate(context.Background(), bob, []string{ws.ID})
	assert.True(t, errdefs.IsPermissionDenied(err))
}

func TestTokenCreate_PublicFoldsIntoRootGrant(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	carol := f.user("carol")
	bob := f.user("bob")
	f.node(op, "minio-a")
	root := f.root(op, "minio-a", types.RootTypePublic, "holt-public")
	ws := f.workspace(carol, "blog", true)

	tokens, err := f.broker.TokenCreate(context.Background(), bob, []string{ws.ID})
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	tok := tokens[0]
	assert.Equal(t, []string{root.ID}, tok.RootIDs)
	assert.Empty(t, tok.WorkspaceIDs, "public access needs no per-workspace statements")
}

func TestTokenCreate_OwnUnmanagedIsForeign(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	f.node(op, "minio-a")
	root := f.root(op, "minio-a", types.RootTypeUnmanaged, "legacy-data")
	ws, err := f.broker.WorkspaceCreate(context.Background(), op, &types.WorkspaceCreate{
		Name:     "sensor-dump",
		RootID:   root.ID,
		BasePath: "2019/march",
	})
	require.NoError(t, err)

	tokens, err := f.broker.TokenCreate(context.Background(), op, []string{ws.ID})
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	tok := tokens[0]
	assert.Equal(t, []string{ws.ID}, tok.WorkspaceIDs)
	assert.Empty(t, tok.RootIDs)
	// Owners of unmanaged workspaces read and write without a share.
	assert.Contains(t, string(tok.Policy), "s3:PutObject")
	assert.Contains(t, string(tok.Policy), `"arn:aws:s3:::legacy-data/2019/march/*"`)
}

func TestTokenCreate_MultiNode(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	f.node(op, "minio-a")
	f.node(op, "minio-b")
	f.root(op, "minio-a", types.RootTypePrivate, "bucket-a")
	f.root(op, "minio-b", types.RootTypePrivate, "bucket-b")

	wsA, err := f.broker.WorkspaceCreate(context.Background(), alice, &types.WorkspaceCreate{Name: "photos", NodeName: "minio-a"})
	require.NoError(t, err)
	wsB, err := f.broker.WorkspaceCreate(context.Background(), alice, &types.WorkspaceCreate{Name: "scans", NodeName: "minio-b"})
	require.NoError(t, err)

	tokens, err := f.broker.TokenCreate(context.Background(), alice, []string{wsA.ID, wsB.ID})
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "minio-a", tokens[0].Node.Name, "group order follows the request")
	assert.Equal(t, "minio-b", tokens[1].Node.Name)
	assert.Equal(t, 2, f.sts.calls)
}

func TestTokenCreate_UnknownIDsIgnored(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")

	tokens, err := f.broker.TokenCreate(context.Background(), alice, []string{"no-such-workspace"})
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestTokenCreate_STSFailure(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)
	f.sts.err = &apiError{code: "InvalidClientTokenId"}

	_, err := f.broker.TokenCreate(context.Background(), alice, []string{ws.ID})
	require.Error(t, err)
	assert.True(t, errdefs.IsUnavailable(err))

	tokens, listErr := f.store.ListTokensByOwner(alice.ID)
	require.NoError(t, listErr)
	assert.Empty(t, tokens, "nothing persisted on mint failure")
}

func TestTokenList_SkipsExpired(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)

	minted, err := f.broker.TokenCreate(context.Background(), alice, []string{ws.ID})
	require.NoError(t, err)

	listed, err := f.broker.TokenList(alice)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "minio-a", listed[0].Node.Name)

	lapsed := minted[0].S3Token
	lapsed.Expiration = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, f.store.CreateToken(&lapsed))

	listed, err = f.broker.TokenList(alice)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestTokenRevoke_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)

	minted, err := f.broker.TokenCreate(context.Background(), alice, []string{ws.ID})
	require.NoError(t, err)

	err = f.broker.TokenRevoke(f.user("bob"), minted[0].ID)
	assert.True(t, errdefs.IsPermissionDenied(err))

	require.NoError(t, f.broker.TokenRevoke(alice, minted[0].ID))
	_, err = f.store.GetToken(minted[0].ID)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestTokenRevokeAll(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	f.node(op, "minio-a")
	f.node(op, "minio-b")
	f.root(op, "minio-a", types.RootTypePrivate, "bucket-a")
	f.root(op, "minio-b", types.RootTypePrivate, "bucket-b")

	wsA, err := f.broker.WorkspaceCreate(context.Background(), alice, &types.WorkspaceCreate{Name: "photos", NodeName: "minio-a"})
	require.NoError(t, err)
	wsB, err := f.broker.WorkspaceCreate(context.Background(), alice, &types.WorkspaceCreate{Name: "scans", NodeName: "minio-b"})
	require.NoError(t, err)
	_, err = f.broker.TokenCreate(context.Background(), alice, []string{wsA.ID, wsB.ID})
	require.NoError(t, err)

	n, err := f.broker.TokenRevokeAll(alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTokenSearch_EndToEnd(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	bob := f.user("bob")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	ws := f.workspace(alice, "photos", false)
	f.share(alice, bob, ws.ID, types.SharePermissionRead)

	resp, err := f.broker.TokenSearch(context.Background(), bob, []string{
		"alice/photos/sep.jpg",
		"nothing/matches/this",
	})
	require.NoError(t, err)

	require.Len(t, resp.Tokens, 1)
	assert.Contains(t, string(resp.Tokens[0].Policy), `"arn:aws:s3:::holt-data/alice/photos/*"`)

	match, ok := resp.Workspaces["alice/photos/sep.jpg"]
	require.True(t, ok)
	assert.Equal(t, ws.ID, match.Workspace.ID)
	assert.Equal(t, "sep.jpg", match.Path)

	_, ok = resp.Workspaces["nothing/matches/this"]
	assert.False(t, ok, "unmatched terms are left out")
}

func TestTokenSearch_SameWorkspaceOnce(t *testing.T) {
	f := newFixture(t)
	op := f.user("op")
	alice := f.user("alice")
	f.node(op, "minio-a")
	f.root(op, "minio-a", types.RootTypePrivate, "holt-data")
	f.workspace(alice, "photos", false)

	resp, err := f.broker.TokenSearch(context.Background(), alice, []string{
		"photos/a.jpg",
		"photos/b.jpg",
	})
	require.NoError(t, err)
	assert.Len(t, resp.Tokens, 1)
	assert.Len(t, resp.Workspaces, 2)
	assert.Equal(t, 1, f.sts.calls)
}
