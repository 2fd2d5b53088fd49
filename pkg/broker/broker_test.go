package broker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/containerd/errdefs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holt/pkg/s3"
	"github.com/cuemby/holt/pkg/security"
	"github.com/cuemby/holt/pkg/storage"
	"github.com/cuemby/holt/pkg/types"
)

type fakeS3 struct {
	buckets   []string
	keys      []string
	createErr error
	putErr    error
}

func (f *fakeS3) CreateBucket(_ context.Context, in *awss3.CreateBucketInput, _ ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.buckets = append(f.buckets, aws.ToString(in.Bucket))
	return &awss3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.keys = append(f.keys, aws.ToString(in.Key))
	return &awss3.PutObjectOutput{}, nil
}

type fakeSTS struct {
	calls    int
	err      error
	policies []string
	roleARNs []string
}

func (f *fakeSTS) AssumeRole(_ context.Context, in *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	f.policies = append(f.policies, aws.ToString(in.Policy))
	f.roleARNs = append(f.roleARNs, aws.ToString(in.RoleArn))
	expiration := time.Now().UTC().Add(time.Hour)
	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String(fmt.Sprintf("ASIATEST%08d", f.calls)),
			SecretAccessKey: aws.String("minted-secret"),
			SessionToken:    aws.String("minted-session"),
			Expiration:      &expiration,
		},
	}, nil
}

// fakeClients satisfies s3.ClientSource and records the node secrets it
// was handed, which must always be the unsealed ones.
type fakeClients struct {
	s3          *fakeS3
	sts         *fakeSTS
	seenSecrets []string
}

func (f *fakeClients) S3(_ context.Context, node *types.StorageNode) (s3.ObjectAPI, error) {
	f.seenSecrets = append(f.seenSecrets, node.SecretAccessKey)
	return f.s3, nil
}

func (f *fakeClients) STS(_ context.Context, node *types.StorageNode) (s3.STSAPI, error) {
	f.seenSecrets = append(f.seenSecrets, node.SecretAccessKey)
	return f.sts, nil
}

type fixture struct {
	t      *testing.T
	broker *Broker
	store  *storage.BoltStore
	s3     *fakeS3
	sts    *fakeSTS
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vault, err := security.NewVaultFromSecret("broker-test-secret")
	require.NoError(t, err)

	s3Fake := &fakeS3{}
	stsFake := &fakeSTS{}
	return &fixture{
		t:      t,
		broker: New(store, &fakeClients{s3: s3Fake, sts: stsFake}, vault),
		store:  store,
		s3:     s3Fake,
		sts:    stsFake,
	}
}

func (f *fixture) user(username string) *types.User {
	f.t.Helper()
	user := &types.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     username + "@example.com",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(f.t, f.store.CreateUser(user))
	return user
}

func (f *fixture) node(creator *types.User, name string) *types.StorageNode {
	f.t.Helper()
	node, err := f.broker.NodeCreate(creator, &types.StorageNodeCreate{
		Name:            name,
		APIURL:          "http://" + name + ".local:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	})
	require.NoError(f.t, err)
	return node
}

func (f *fixture) root(creator *types.User, nodeName string, rootType types.RootType, bucket string) *types.WorkspaceRoot {
	f.t.Helper()
	root, err := f.broker.RootCreate(context.Background(), creator, &types.WorkspaceRootCreate{
		RootType: rootType,
		NodeName: nodeName,
		Bucket:   bucket,
	})
	require.NoError(f.t, err)
	return root
}

func (f *fixture) workspace(owner *types.User, name string, public bool) *types.WorkspaceOut {
	f.t.Helper()
	ws, err := f.broker.WorkspaceCreate(context.Background(), owner, &types.WorkspaceCreate{
		Name:   name,
		Public: public,
	})
	require.NoError(f.t, err)
	return ws
}

func (f *fixture) share(creator, sharee *types.User, workspaceID string, permission types.SharePermission) *types.Share {
	f.t.Helper()
	share, err := f.broker.ShareCreate(creator, &types.ShareCreate{
		WorkspaceID: workspaceID,
		ShareeID:    sharee.ID,
		Permission:  permission,
	})
	require.NoError(f.t, err)
	return share
}

func TestProvisionUser_CreatesAndFinds(t *testing.T) {
	f := newFixture(t)

	created, err := f.broker.ProvisionUser("ada@example.com", "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada-Lovelace", created.Username)

	again, err := f.broker.ProvisionUser("ada@example.com", "whatever")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Ada-Lovelace", again.Username)
}

func TestProvisionUser_UsernameCollision(t *testing.T) {
	f := newFixture(t)
	f.user("grace")

	provisioned, err := f.broker.ProvisionUser("other@example.com", "grace")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(provisioned.Username, "grace-"), "got username %q", provisioned.Username)
	assert.NotEqual(t, "grace", provisioned.Username)
}

func TestProvisionUser_RequiresEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.broker.ProvisionUser("", "ada")
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestProvisionUser_EmptyHintFallsBack(t *testing.T) {
	f := newFixture(t)

	provisioned, err := f.broker.ProvisionUser("x@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "user", provisioned.Username)
}

func TestUnsealNode_DoesNotMutateStored(t *testing.T) {
	f := newFixture(t)
	operator := f.user("op")
	node := f.node(operator, "minio-a")

	stored, err := f.store.GetNode(node.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "minioadmin", stored.SecretAccessKey, "secret must be sealed at rest")

	unsealed, err := f.broker.unsealNode(stored)
	require.NoError(t, err)
	assert.Equal(t, "minioadmin", unsealed.SecretAccessKey)

	after, err := f.store.GetNode(node.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.SecretAccessKey, after.SecretAccessKey)
}
