package index

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/containerd/errdefs"

	"github.com/cuemby/holt/pkg/keys"
	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/metrics"
	"github.com/cuemby/holt/pkg/types"
)

// Bucket event notification payloads differ slightly between S3 and
// MinIO. These structs carry the fields both emit.

// EventIdentity identifies the principal behind an event
type EventIdentity struct {
	PrincipalID string `json:"principalId"`
}

// EventBucket names the bucket an event happened in
type EventBucket struct {
	Name          string        `json:"name"`
	OwnerIdentity EventIdentity `json:"ownerIdentity"`
	ARN           string        `json:"arn"`
}

// EventObject describes the object an event happened to. Key arrives
// URL-encoded.
type EventObject struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ETag        string `json:"eTag"`
	ContentType string `json:"contentType"`
	Sequencer   string `json:"sequencer"`
}

// EventS3 wraps the bucket and object of one record
type EventS3 struct {
	SchemaVersion   string      `json:"s3SchemaVersion"`
	ConfigurationID string      `json:"configurationId"`
	Bucket          EventBucket `json:"bucket"`
	Object          EventObject `json:"object"`
}

// EventRecord is one object mutation inside a notification payload
type EventRecord struct {
	AWSRegion    string        `json:"awsRegion"`
	EventName    string        `json:"eventName"`
	EventVersion string        `json:"eventVersion"`
	EventSource  string        `json:"eventSource"`
	EventTime    time.Time     `json:"eventTime"`
	UserIdentity EventIdentity `json:"userIdentity"`
	S3           EventS3       `json:"s3"`
}

// BucketEventNotification is the webhook body posted by the object store.
// MinIO adds top-level EventName and Key fields that S3 omits.
type BucketEventNotification struct {
	Records   []EventRecord `json:"Records"`
	EventName string        `json:"EventName,omitempty"`
	Key       string        `json:"Key,omitempty"`
}

// HandleEvents ingests one bucket notification payload. Records are
// applied in array order and submitted to the engine as a single bulk
// call; a payload without records is acknowledged and dropped.
func (ix *Indexer) HandleEvents(ctx context.Context, payload *BucketEventNotification) error {
	if err := ix.ready(); err != nil {
		return err
	}
	if len(payload.Records) == 0 {
		return nil
	}

	var writer *BulkWriter
	upserts, deletes := 0, 0
	for i := range payload.Records {
		rec := &payload.Records[i]
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return fmt.Errorf("undecodable object key %q: %w", rec.S3.Object.Key, errdefs.ErrInvalidArgument)
		}
		target, err := ix.resolveObject(key, rec.S3.Bucket.Name)
		if err != nil {
			return err
		}
		if writer == nil {
			writer = NewBulkWriter(string(target.index.IndexType))
		}

		switch rec.EventName {
		case "s3:ObjectCreated:Put", "s3:ObjectCreated:Post", "s3:ObjectCreated:Copy":
			doc := &types.IndexDocument{
				Time:        rec.EventTime,
				Size:        rec.S3.Object.Size,
				ETag:        rec.S3.Object.ETag,
				ContentType: rec.S3.Object.ContentType,
				Path:        target.innerPath,
				Filename:    path.Base(target.innerPath),
				Extension:   path.Ext(target.innerPath),
			}
			sharees, err := ix.shareeIDs(target.workspace.ID)
			if err != nil {
				return err
			}
			decorate(doc, target.workspace, target.owner, target.root, target.node, target.prefix, sharees, "")
			if err := writer.Upsert(target.id, doc); err != nil {
				return err
			}
			upserts++
		case "s3:ObjectRemoved:Delete":
			if err := writer.Delete(target.id); err != nil {
				return err
			}
			deletes++
		default:
			return fmt.Errorf("unsupported bucket event %q: %w", rec.EventName, errdefs.ErrInvalidArgument)
		}
	}

	if err := ix.submit(ctx, writer, "events"); err != nil {
		return err
	}
	if upserts > 0 {
		metrics.IndexDocumentsTotal.WithLabelValues("upsert").Add(float64(upserts))
	}
	if deletes > 0 {
		metrics.IndexDocumentsTotal.WithLabelValues("delete").Add(float64(deletes))
	}
	log.WithComponent("index").Info().
		Int("upserts", upserts).
		Int("deletes", deletes).
		Msg("Indexed bucket events")
	return nil
}

// objectTarget locates one notification object inside a workspace
type objectTarget struct {
	index     *types.RootIndex
	workspace *types.Workspace
	owner     *types.User
	root      *types.WorkspaceRoot
	node      *types.StorageNode
	prefix    string
	innerPath string
	id        string
}

// resolveObject finds the indexed root covering an object key, the
// workspace the key falls under, and the document id. The workspace
// prefix is rebuilt with the shared key builder so the id always matches
// what a crawl of the same workspace produces.
func (ix *Indexer) resolveObject(key, bucket string) (*objectTarget, error) {
	root, idx, err := ix.coveringRoot(key, bucket)
	if err != nil {
		return nil, err
	}

	inner := insideRoot(key, root.BasePath)
	var ws *types.Workspace
	if root.RootType == types.RootTypeUnmanaged {
		ws, err = ix.unmanagedWorkspace(root, inner)
	} else {
		ws, err = ix.managedWorkspace(root, inner)
	}
	if err != nil {
		return nil, err
	}

	owner, err := ix.store.GetUser(ws.OwnerID)
	if err != nil {
		return nil, err
	}
	node, err := ix.store.GetNode(root.NodeID)
	if err != nil {
		return nil, err
	}

	prefix := keys.WorkspaceKey(root, ws, owner.Username)
	innerPath := strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
	return &objectTarget{
		index:     idx,
		workspace: ws,
		owner:     owner,
		root:      root,
		node:      node,
		prefix:    prefix,
		innerPath: innerPath,
		id:        keys.RecordPrimaryKey(node.APIURL, root.Bucket, prefix, innerPath),
	}, nil
}

// coveringRoot picks the most specific indexed root whose base path
// prefixes the key in the named bucket. Roots without an index record
// are skipped; when none qualifies the event cannot be ingested.
func (ix *Indexer) coveringRoot(key, bucket string) (*types.WorkspaceRoot, *types.RootIndex, error) {
	roots, err := ix.store.ListRootsByBucket(bucket)
	if err != nil {
		return nil, nil, err
	}

	var (
		best    *types.WorkspaceRoot
		bestIdx *types.RootIndex
	)
	for _, root := range roots {
		if !underPrefix(key, root.BasePath) {
			continue
		}
		if best != nil && len(root.BasePath) <= len(best.BasePath) {
			continue
		}
		idx, err := ix.store.GetRootIndexByRoot(root.ID)
		if err != nil {
			if errdefs.IsNotFound(err) {
				continue
			}
			return nil, nil, err
		}
		best, bestIdx = root, idx
	}
	if best == nil {
		return nil, nil, fmt.Errorf("no index for object %s: %w", key, errdefs.ErrInvalidArgument)
	}
	return best, bestIdx, nil
}

// managedWorkspace reads {username}/{workspace} from the key remainder
// after the root base path and resolves the workspace by owner and name.
func (ix *Indexer) managedWorkspace(root *types.WorkspaceRoot, inner string) (*types.Workspace, error) {
	parts := splitKey(inner)
	if len(parts) < 2 {
		return nil, fmt.Errorf("object key %s is too shallow for a managed root: %w", inner, errdefs.ErrInvalidArgument)
	}
	owner, err := ix.store.GetUserByUsername(parts[0])
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("no workspace owner %s under root %s: %w", parts[0], root.ID, errdefs.ErrInvalidArgument)
		}
		return nil, err
	}
	ws, err := ix.store.GetWorkspaceByOwnerAndName(owner.ID, parts[1])
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("no workspace %s/%s under root %s: %w", parts[0], parts[1], root.ID, errdefs.ErrInvalidArgument)
		}
		return nil, err
	}
	return ws, nil
}

// unmanagedWorkspace picks the workspace whose base path is the longest
// prefix of the key inside the root.
func (ix *Indexer) unmanagedWorkspace(root *types.WorkspaceRoot, inner string) (*types.Workspace, error) {
	workspaces, err := ix.store.ListWorkspacesByRoot(root.ID)
	if err != nil {
		return nil, err
	}
	var best *types.Workspace
	for _, ws := range workspaces {
		if !underPrefix(inner, ws.BasePath) {
			continue
		}
		if best == nil || len(ws.BasePath) > len(best.BasePath) {
			best = ws
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no workspace covers object %s: %w", inner, errdefs.ErrInvalidArgument)
	}
	return best, nil
}

func underPrefix(key, base string) bool {
	if base == "" {
		return true
	}
	return key == base || strings.HasPrefix(key, base+"/")
}

func insideRoot(key, base string) string {
	if base == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, base), "/")
}

func splitKey(key string) []string {
	parts := make([]string, 0, 4)
	for _, p := range strings.Split(key, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
