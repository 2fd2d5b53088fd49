package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"

	"github.com/cuemby/holt/pkg/client"
	"github.com/cuemby/holt/pkg/s3"
	"github.com/cuemby/holt/pkg/types"
)

// Root commands
var rootsCmd = &cobra.Command{
	Use:     "root",
	Aliases: []string{"r"},
	Short:   "Manage workspace roots",
}

var rootCreateCmd = &cobra.Command{
	Use:   "create NODE_NAME BUCKET",
	Short: "Register a root on a storage node",
	Long: `Register a bucket region workspaces can be placed under. The bucket
is created on the node if it does not exist yet. Root types: private
(default), public, or unmanaged for pre-existing data.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootType, _ := cmd.Flags().GetString("root-type")
		basePath, _ := cmd.Flags().GetString("base-path")

		root, err := apiClient(cmd).RootCreate(&types.WorkspaceRootCreate{
			RootType: types.RootType(rootType),
			NodeName: args[0],
			Bucket:   args[1],
			BasePath: basePath,
		})
		if err != nil {
			return err
		}
		return printJSON(root)
	},
}

var rootListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered roots",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeName, _ := cmd.Flags().GetString("node")
		roots, err := apiClient(cmd).RootList(nodeName)
		if err != nil {
			return err
		}
		return printJSON(roots)
	},
}

var rootDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient(cmd).RootDelete(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Root deleted: %s\n", args[0])
		return nil
	},
}

var rootIndexCmd = &cobra.Command{
	Use:   "index ROOT_ID",
	Short: "Enable search indexing for a root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if remove, _ := cmd.Flags().GetBool("remove"); remove {
			if err := apiClient(cmd).RootIndexDelete(args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Index removed for root %s\n", args[0])
			return nil
		}
		record, err := apiClient(cmd).RootIndexCreate(args[0])
		if err != nil {
			return err
		}
		return printJSON(record)
	},
}

var rootImportCmd = &cobra.Command{
	Use:   "import ROOT_ID",
	Short: "Register existing data under a root as workspaces",
	Long: `List the top-level prefixes of an unmanaged root and register each as
a workspace owned by you. Prefixes already registered are skipped.
Newly registered workspaces are then crawled into the search index
unless --skip-index is given. Only the node creator may import.`,
	Args: cobra.ExactArgs(1),
	RunE: runRootImport,
}

func init() {
	rootsCmd.AddCommand(rootCreateCmd)
	rootsCmd.AddCommand(rootListCmd)
	rootsCmd.AddCommand(rootDeleteCmd)
	rootsCmd.AddCommand(rootIndexCmd)
	rootsCmd.AddCommand(rootImportCmd)

	rootCreateCmd.Flags().String("root-type", string(types.RootTypePrivate), "Root type: private, public or unmanaged")
	rootCreateCmd.Flags().String("base-path", "", "Prefix inside the bucket the root is confined to")

	rootListCmd.Flags().String("node", "", "Only roots on the named node")

	rootIndexCmd.Flags().Bool("remove", false, "Disable indexing and drop the root's documents")

	rootImportCmd.Flags().Bool("skip-index", false, "Register workspaces without crawling them")
}

func runRootImport(cmd *cobra.Command, args []string) error {
	skipIndex, _ := cmd.Flags().GetBool("skip-index")

	c := apiClient(cmd)
	creds, err := c.RootImport(args[0])
	if err != nil {
		return err
	}
	root := creds.Root

	mc, err := s3.NewClientCache().Minio(creds.Node)
	if err != nil {
		return err
	}

	prefix := ""
	if root.BasePath != "" {
		prefix = strings.Trim(root.BasePath, "/") + "/"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Importing %s/%s\n", root.Bucket, prefix)

	var created []*types.WorkspaceOut
	for obj := range mc.ListObjects(ctx, root.Bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return fmt.Errorf("listing failed: %v", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, "/") {
			// Loose objects above workspace level cannot be imported.
			continue
		}
		base := strings.Trim(strings.TrimPrefix(obj.Key, prefix), "/")
		ws, err := c.WorkspaceCreate(&types.WorkspaceCreate{
			Name:     path.Base(base),
			RootID:   root.ID,
			BasePath: base,
		})
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
				fmt.Printf("  %s already registered, skipping\n", base)
				continue
			}
			return err
		}
		fmt.Printf("✓ Registered workspace %s (%s)\n", ws.Name, ws.ID)
		created = append(created, ws)
	}

	if skipIndex || len(created) == 0 {
		return nil
	}

	if _, err := c.RootIndexCreate(root.ID); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotImplemented {
			fmt.Println("  Search engine not configured, skipping indexing")
			return nil
		}
		return err
	}
	for _, ws := range created {
		if err := crawlWorkspace(c, ws); err != nil {
			return err
		}
	}
	return nil
}
