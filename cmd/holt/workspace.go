package main

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"

	"github.com/cuemby/holt/pkg/client"
	"github.com/cuemby/holt/pkg/keys"
	"github.com/cuemby/holt/pkg/s3"
	"github.com/cuemby/holt/pkg/types"
)

// Workspace commands
var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"w", "ws"},
	Short:   "Manage workspaces",
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new workspace",
	Long: `Create a managed workspace on one of the server's roots, or register
an unmanaged workspace over existing data with --root-id and
--base-path.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		public, _ := cmd.Flags().GetBool("public")
		nodeName, _ := cmd.Flags().GetString("node")
		rootID, _ := cmd.Flags().GetString("root-id")
		basePath, _ := cmd.Flags().GetString("base-path")

		ws, err := apiClient(cmd).WorkspaceCreate(&types.WorkspaceCreate{
			Name:     args[0],
			Public:   public,
			NodeName: nodeName,
			RootID:   rootID,
			BasePath: basePath,
		})
		if err != nil {
			return err
		}
		return printJSON(ws)
	},
}

var workspaceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List workspaces visible to you",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		like, _ := cmd.Flags().GetString("like")
		public, _ := cmd.Flags().GetBool("public")

		workspaces, err := apiClient(cmd).WorkspaceSearch(client.WorkspaceFilter{
			Name:   name,
			Like:   like,
			Public: public,
		})
		if err != nil {
			return err
		}
		return printJSON(workspaces)
	},
}

var workspaceShareCmd = &cobra.Command{
	Use:   "share WORKSPACE SHAREE",
	Short: "Share a workspace with another user",
	Long: `Grant another user access to a workspace you own. Both the workspace
and the sharee may be given by id or by name.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		permission, _ := cmd.Flags().GetString("permission")
		expiration, _ := cmd.Flags().GetString("expiration")

		req := &types.ShareCreate{Permission: types.SharePermission(permission)}
		if _, err := uuid.Parse(args[0]); err == nil {
			req.WorkspaceID = args[0]
		} else {
			req.WorkspaceName = args[0]
		}
		if _, err := uuid.Parse(args[1]); err == nil {
			req.ShareeID = args[1]
		} else {
			req.ShareeName = args[1]
		}
		if expiration != "" {
			t, err := time.Parse(time.RFC3339, expiration)
			if err != nil {
				return fmt.Errorf("invalid expiration %q, want RFC 3339: %v", expiration, err)
			}
			req.Expiration = &t
		}

		share, err := apiClient(cmd).ShareCreate(req)
		if err != nil {
			return err
		}
		return printJSON(share)
	},
}

var workspaceDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient(cmd).WorkspaceDelete(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Workspace deleted: %s\n", args[0])
		return nil
	},
}

var workspaceIndexCmd = &cobra.Command{
	Use:   "index WORKSPACE",
	Short: "Crawl a workspace into the search index",
	Long: `List every object in the workspace and submit it to the search index
in batches. An interrupted crawl leaves its round open; running the
command again resumes the listing after the last indexed key. Only the
operator of the workspace's storage node may crawl it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := apiClient(cmd)
		ws, err := resolveWorkspace(c, args[0])
		if err != nil {
			return err
		}
		return crawlWorkspace(c, ws)
	},
}

func init() {
	workspaceCmd.AddCommand(workspaceCreateCmd)
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceShareCmd)
	workspaceCmd.AddCommand(workspaceDeleteCmd)
	workspaceCmd.AddCommand(workspaceIndexCmd)

	workspaceCreateCmd.Flags().Bool("public", false, "Place the workspace under a public root")
	workspaceCreateCmd.Flags().String("node", "", "Pin placement to the named storage node")
	workspaceCreateCmd.Flags().String("root-id", "", "Root for an unmanaged workspace")
	workspaceCreateCmd.Flags().String("base-path", "", "Existing data prefix for an unmanaged workspace")

	workspaceListCmd.Flags().String("name", "", "Exact name match")
	workspaceListCmd.Flags().String("like", "", "Substring name match")
	workspaceListCmd.Flags().Bool("public", false, "Include public workspaces of other users")

	workspaceShareCmd.Flags().String("permission", string(types.SharePermissionRead), "Grant level: read, readwrite or own")
	workspaceShareCmd.Flags().String("expiration", "", "RFC 3339 time after which the share lapses")
}

// resolveWorkspace accepts a workspace id or a unique name.
func resolveWorkspace(c *client.Client, ref string) (*types.WorkspaceOut, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return c.WorkspaceGet(ref)
	}
	matches, err := c.WorkspaceSearch(client.WorkspaceFilter{Name: ref})
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no workspace named %q", ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("multiple workspaces named %q, pass an id instead", ref)
	}
}

// crawlBatchSize is the number of documents submitted per bulk call.
const crawlBatchSize = 100

// crawlWorkspace pulls the workspace's object inventory into the search
// index: open or resume the crawl round, stream the bucket listing from
// the resume key, and post batches until the listing is drained. The
// final batch closes the round.
func crawlWorkspace(c *client.Client, ws *types.WorkspaceOut) error {
	creds, err := c.RootImport(ws.RootID)
	if err != nil {
		return err
	}
	round, err := c.CrawlCreate(ws.ID)
	if err != nil {
		return err
	}

	prefix := keys.WorkspaceKey(creds.Root, &ws.Workspace, ws.Owner.Username)
	if round.LastIndexedKey != "" {
		fmt.Printf("Resuming crawl of %s/%s after %s\n", ws.Owner.Username, ws.Name, round.LastIndexedKey)
	} else {
		fmt.Printf("Crawling %s/%s\n", ws.Owner.Username, ws.Name)
	}

	mc, err := s3.NewClientCache().Minio(creds.Node)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	objects := mc.ListObjects(ctx, creds.Root.Bucket, minio.ListObjectsOptions{
		Prefix:     prefix + "/",
		Recursive:  true,
		StartAfter: round.LastIndexedKey,
	})

	var batch []types.IndexDocument
	var lastKey string
	total := 0
	flush := func(succeeded bool) error {
		resp, err := c.BulkIndex(ws.ID, &types.BulkIndexRequest{
			Documents:      batch,
			LastIndexedKey: lastKey,
			Succeeded:      succeeded,
		})
		if err != nil {
			return err
		}
		total += resp.Count
		batch = batch[:0]
		return nil
	}

	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("listing failed: %v", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			// Prefix marker objects carry no content.
			continue
		}
		batch = append(batch, objectDocument(prefix, obj))
		lastKey = obj.Key
		if len(batch) >= crawlBatchSize {
			if err := flush(false); err != nil {
				return err
			}
			fmt.Printf("  indexed %d objects (through %s)\n", total, lastKey)
		}
	}

	// The final batch closes the round even when it is empty.
	if err := flush(true); err != nil {
		return err
	}
	fmt.Printf("✓ Indexed %d objects in %s/%s\n", total, ws.Owner.Username, ws.Name)
	return nil
}

// objectDocument turns one listing entry into an index document. Path is
// relative to the workspace key so crawl and event ingest agree on ids.
func objectDocument(prefix string, obj minio.ObjectInfo) types.IndexDocument {
	inner := strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/")
	filename := path.Base(inner)
	return types.IndexDocument{
		Time:        obj.LastModified,
		Size:        obj.Size,
		ETag:        strings.Trim(obj.ETag, `"`),
		Path:        inner,
		Filename:    filename,
		Extension:   path.Ext(filename),
		ContentType: obj.ContentType,
	}
}
