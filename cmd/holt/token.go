package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Token commands
var tokenCmd = &cobra.Command{
	Use:     "token",
	Aliases: []string{"t"},
	Short:   "Manage scoped S3 credentials",
}

var tokenFetchCmd = &cobra.Command{
	Use:     "fetch TERM...",
	Aliases: []string{"f"},
	Short:   "Fetch S3 credentials covering the given workspaces",
	Long: `Resolve each term (a workspace name, owner/name, or owner/name/path)
and mint or reuse credentials covering all of them. Credentials are
printed with the per-node token and the term-to-workspace mapping.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := apiClient(cmd).TokenSearch(args)
		if err != nil {
			return err
		}
		if len(resp.Tokens) == 0 {
			return fmt.Errorf("no workspaces matched %q", strings.Join(args, " "))
		}
		return printJSON(resp)
	},
}

var tokenListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your active credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, err := apiClient(cmd).TokenList()
		if err != nil {
			return err
		}
		return printJSON(tokens)
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete [ID]",
	Short: "Revoke credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all {
			n, err := apiClient(cmd).TokenDeleteAll()
			if err != nil {
				return err
			}
			fmt.Printf("✓ Revoked %d tokens\n", n)
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("pass a token id or --all")
		}
		if err := apiClient(cmd).TokenDelete(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Token revoked: %s\n", args[0])
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenFetchCmd)
	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenDeleteCmd)

	tokenDeleteCmd.Flags().Bool("all", false, "Revoke every token you hold")
}
