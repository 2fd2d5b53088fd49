package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cuemby/holt/pkg/client"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(color.Error, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "holt",
	Short: "Holt - S3 workspace broker",
	Long: `Holt layers named, shareable workspaces on top of S3-compatible
object stores. It mints short-lived scoped credentials for clients and
keeps a full-text index of workspace contents.

Every command except serve talks to a running holt server. Point the
CLI there with --api-url or WIO_API_URL and authenticate with
--api-key or WIO_API_KEY.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Holt version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("api-url", envOr("WIO_API_URL", "http://localhost:8100"), "Base URL of the holt server")
	rootCmd.PersistentFlags().String("api-key", os.Getenv("WIO_API_KEY"), "API credential (key_id:secret pair or session token)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(rootsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(apikeyCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(mcCmd)
}

// apiClient builds a client from the persistent connection flags.
func apiClient(cmd *cobra.Command) *client.Client {
	apiURL, _ := cmd.Flags().GetString("api-url")
	apiKey, _ := cmd.Flags().GetString("api-key")
	return client.New(apiURL, apiKey)
}

// printJSON writes the server's response to stdout, indented for humans
// and stable enough for scripts.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %v", err)
	}
	fmt.Println(string(data))
	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
