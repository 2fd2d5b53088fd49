package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/holt/pkg/types"
)

// Node commands
var nodeCmd = &cobra.Command{
	Use:     "node",
	Aliases: []string{"n"},
	Short:   "Manage storage nodes",
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create NAME API_URL",
	Short: "Register an S3-compatible storage node",
	Long: `Register a MinIO or AWS S3 endpoint. The operator credentials are
taken from --access-key and --secret-key, falling back to the
AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables.
They are sealed at rest on the server and never returned.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, _ := cmd.Flags().GetString("region")
		stsAPIURL, _ := cmd.Flags().GetString("sts-api-url")
		roleARN, _ := cmd.Flags().GetString("role-arn")
		accessKey, _ := cmd.Flags().GetString("access-key")
		secretKey, _ := cmd.Flags().GetString("secret-key")

		if accessKey == "" {
			accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		}
		if secretKey == "" {
			secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		}
		if accessKey == "" || secretKey == "" {
			return fmt.Errorf("node credentials required: pass --access-key and --secret-key or set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
		}

		node, err := apiClient(cmd).NodeCreate(&types.StorageNodeCreate{
			Name:            args[0],
			APIURL:          args[1],
			STSAPIURL:       stsAPIURL,
			Region:          region,
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
			AssumeRoleARN:   roleARN,
		})
		if err != nil {
			return err
		}
		return printJSON(node)
	},
}

var nodeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered storage nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := apiClient(cmd).NodeList()
		if err != nil {
			return err
		}
		return printJSON(nodes)
	},
}

var nodeDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a storage node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient(cmd).NodeDelete(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Node deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	nodeCmd.AddCommand(nodeCreateCmd)
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeDeleteCmd)

	nodeCreateCmd.Flags().String("region", "us-east-1", "Region credentials are minted for")
	nodeCreateCmd.Flags().String("sts-api-url", "", "Dedicated STS endpoint, when separate from the API URL")
	nodeCreateCmd.Flags().String("role-arn", "", "Role to assume when minting against AWS STS")
	nodeCreateCmd.Flags().String("access-key", "", "Operator access key id")
	nodeCreateCmd.Flags().String("secret-key", "", "Operator secret access key")
}
