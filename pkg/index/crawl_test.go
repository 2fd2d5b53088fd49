package index

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holt/pkg/keys"
	"github.com/cuemby/holt/pkg/types"
)

// crawlScene is the usual crawl setup: alice's managed workspace on an
// indexed private root.
type crawlScene struct {
	f     *fixture
	alice *types.User
	node  *types.StorageNode
	root  *types.WorkspaceRoot
	ws    *types.Workspace
}

func newCrawlScene(t *testing.T) *crawlScene {
	f := newFixture(t)
	alice := f.user("alice")
	node := f.node(alice, "minio-east")
	root := f.root(node, types.RootTypePrivate, "holt-data", "")
	ws := f.workspace(alice, root, "photos", "")
	f.enable(alice, root)
	f.engine.reset()
	return &crawlScene{f: f, alice: alice, node: node, root: root, ws: ws}
}

// bulkLines splits the single bulk payload the engine received.
func (s *crawlScene) bulkLines(t *testing.T) []string {
	t.Helper()
	bulks := s.f.engine.requests(http.MethodPost, "/_bulk")
	require.Len(t, bulks, 1)
	return strings.Split(strings.TrimRight(bulks[0].Body, "\n"), "\n")
}

func TestCrawlCreate_OpensAndResumes(t *testing.T) {
	s := newCrawlScene(t)
	ctx := context.Background()

	first, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)
	assert.True(t, first.Open())

	again, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = s.f.indexer.BulkIndex(ctx, s.alice, s.ws.ID, &types.BulkIndexRequest{Succeeded: true})
	require.NoError(t, err)

	fresh, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
}

func TestCrawlCreate_ResumeKeepsLastIndexedKey(t *testing.T) {
	s := newCrawlScene(t)
	ctx := context.Background()

	_, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)
	_, err = s.f.indexer.BulkIndex(ctx, s.alice, s.ws.ID, &types.BulkIndexRequest{
		Documents:      []types.IndexDocument{{Time: time.Now(), Path: "a/b/c", Filename: "c", Extension: ""}},
		LastIndexedKey: "a/b/c",
	})
	require.NoError(t, err)

	resumed, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "a/b/c", resumed.LastIndexedKey)
}

func TestCrawlCreate_OperatorOnly(t *testing.T) {
	s := newCrawlScene(t)

	bob := s.f.user("bob")
	_, err := s.f.indexer.CrawlCreate(bob, s.ws.ID)
	assert.True(t, errdefs.IsPermissionDenied(err))
}

func TestBulkIndex_DecoratesAndAccounts(t *testing.T) {
	s := newCrawlScene(t)
	ctx := context.Background()

	bob := s.f.user("bob")
	s.f.share(s.ws, bob, nil)

	round, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)

	resp, err := s.f.indexer.BulkIndex(ctx, s.alice, s.ws.ID, &types.BulkIndexRequest{
		Documents: []types.IndexDocument{
			{Time: time.Now(), Size: 100, Path: "2024/sep.jpg", Filename: "sep.jpg", Extension: ".jpg"},
			{Time: time.Now(), Size: 50, Path: "notes.txt", Filename: "notes.txt", Extension: ".txt"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, int64(2), resp.Round.TotalObjects)
	assert.Equal(t, int64(150), resp.Round.TotalSizeBytes)
	assert.Equal(t, "notes.txt", resp.Round.LastIndexedKey)
	assert.True(t, resp.Round.Open())

	lines := s.bulkLines(t)
	require.Len(t, lines, 4)

	var action struct {
		Update struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"update"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &action))
	assert.Equal(t, "default", action.Update.Index)
	wantID := keys.RecordPrimaryKey(s.node.APIURL, "holt-data", "alice/photos", "2024/sep.jpg")
	assert.Equal(t, wantID, action.Update.ID)

	var body struct {
		Doc         types.IndexDocument `json:"doc"`
		DocAsUpsert bool                `json:"doc_as_upsert"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &body))
	assert.True(t, body.DocAsUpsert)
	assert.Equal(t, s.ws.ID, body.Doc.WorkspaceID)
	assert.Equal(t, "photos", body.Doc.WorkspaceName)
	assert.Equal(t, s.alice.ID, body.Doc.OwnerID)
	assert.Equal(t, "alice", body.Doc.OwnerName)
	assert.Equal(t, "holt-data", body.Doc.Bucket)
	assert.Equal(t, s.node.APIURL, body.Doc.Server)
	assert.Equal(t, "alice/photos", body.Doc.WorkspaceBasePath)
	assert.Equal(t, round.ID, body.Doc.LastSeenCrawlID)
	assert.Equal(t, []string{bob.ID}, body.Doc.UserShares)
}

func TestBulkIndex_ExplicitLastKeyWins(t *testing.T) {
	s := newCrawlScene(t)
	ctx := context.Background()

	_, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)

	resp, err := s.f.indexer.BulkIndex(ctx, s.alice, s.ws.ID, &types.BulkIndexRequest{
		Documents:      []types.IndexDocument{{Time: time.Now(), Path: "z.txt", Filename: "z.txt"}},
		LastIndexedKey: "marker/resume-here",
	})
	require.NoError(t, err)
	assert.Equal(t, "marker/resume-here", resp.Round.LastIndexedKey)
}

func TestBulkIndex_SucceededClosesRound(t *testing.T) {
	s := newCrawlScene(t)
	ctx := context.Background()

	_, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)

	resp, err := s.f.indexer.BulkIndex(ctx, s.alice, s.ws.ID, &types.BulkIndexRequest{
		Documents: []types.IndexDocument{{Time: time.Now(), Path: "last.txt", Filename: "last.txt"}},
		Succeeded: true,
	})
	require.NoError(t, err)
	assert.False(t, resp.Round.Open())
	require.NotNil(t, resp.Round.EndTime)

	// Late batches against the closed round are rejected.
	_, err = s.f.indexer.BulkIndex(ctx, s.alice, s.ws.ID, &types.BulkIndexRequest{
		Documents: []types.IndexDocument{{Time: time.Now(), Path: "late.txt", Filename: "late.txt"}},
	})
	assert.True(t, errdefs.IsFailedPrecondition(err))
}

func TestBulkIndex_EmptyBatchOnlyAdvancesRound(t *testing.T) {
	s := newCrawlScene(t)
	ctx := context.Background()

	_, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)

	resp, err := s.f.indexer.BulkIndex(ctx, s.alice, s.ws.ID, &types.BulkIndexRequest{Succeeded: true})
	require.NoError(t, err)
	assert.False(t, resp.Round.Open())
	assert.Equal(t, int64(0), resp.Round.TotalObjects)
	assert.Empty(t, s.f.engine.requests(http.MethodPost, "/_bulk"))
}

func TestBulkIndex_RequiresOpenRound(t *testing.T) {
	s := newCrawlScene(t)

	_, err := s.f.indexer.BulkIndex(context.Background(), s.alice, s.ws.ID, &types.BulkIndexRequest{})
	assert.True(t, errdefs.IsNotFound(err))
}

func TestBulkIndex_RequiresRootIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user("alice")
	node := f.node(alice, "minio-east")
	root := f.root(node, types.RootTypePrivate, "holt-data", "")
	ws := f.workspace(alice, root, "photos", "")

	_, err := f.indexer.CrawlCreate(alice, ws.ID)
	require.NoError(t, err)

	_, err = f.indexer.BulkIndex(ctx, alice, ws.ID, &types.BulkIndexRequest{})
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestBulkIndex_OperatorOnly(t *testing.T) {
	s := newCrawlScene(t)
	ctx := context.Background()

	_, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)

	bob := s.f.user("bob")
	_, err = s.f.indexer.BulkIndex(ctx, bob, s.ws.ID, &types.BulkIndexRequest{})
	assert.True(t, errdefs.IsPermissionDenied(err))
}

func TestBulkIndex_ExpiredShareLeftOffDocuments(t *testing.T) {
	s := newCrawlScene(t)
	ctx := context.Background()

	bob := s.f.user("bob")
	expired := time.Now().Add(-time.Hour)
	s.f.share(s.ws, bob, &expired)

	_, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)
	_, err = s.f.indexer.BulkIndex(ctx, s.alice, s.ws.ID, &types.BulkIndexRequest{
		Documents: []types.IndexDocument{{Time: time.Now(), Path: "a.txt", Filename: "a.txt"}},
	})
	require.NoError(t, err)

	lines := s.bulkLines(t)
	var body struct {
		Doc types.IndexDocument `json:"doc"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &body))
	assert.Empty(t, body.Doc.UserShares)
}

func TestBulkIndex_AccountsBeforeEngineWrite(t *testing.T) {
	s := newCrawlScene(t)
	ctx := context.Background()

	_, err := s.f.indexer.CrawlCreate(s.alice, s.ws.ID)
	require.NoError(t, err)

	s.f.engine.respond(http.StatusBadGateway, `{}`)
	_, err = s.f.indexer.BulkIndex(ctx, s.alice, s.ws.ID, &types.BulkIndexRequest{
		Documents: []types.IndexDocument{{Time: time.Now(), Path: "a.txt", Filename: "a.txt"}},
	})
	assert.True(t, errdefs.IsUnavailable(err))

	// The round advanced anyway; replaying the batch is idempotent on
	// the engine side.
	round, err := s.f.store.LatestCrawlRound(s.ws.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), round.TotalObjects)
	assert.Equal(t, "a.txt", round.LastIndexedKey)
}

func TestBulkIndex_UnknownWorkspace(t *testing.T) {
	s := newCrawlScene(t)

	_, err := s.f.indexer.BulkIndex(context.Background(), s.alice, uuid.New().String(), &types.BulkIndexRequest{})
	assert.True(t, errdefs.IsNotFound(err))
}
