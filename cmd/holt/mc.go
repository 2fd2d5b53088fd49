package main

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
	"syscall"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/cuemby/holt/pkg/keys"
	"github.com/cuemby/holt/pkg/types"
)

// minioCommands are the mc subcommands whose arguments may name
// workspace paths.
var minioCommands = []string{
	"ls", "cp", "mirror", "cat", "head", "pipe", "share", "find",
	"sql", "stat", "mv", "tree", "du", "diff", "rm", "watch",
}

var mcCmd = &cobra.Command{
	Use:   "mc ARGS...",
	Short: "Run the MinIO client against workspace paths",
	Long: `Wrap the mc binary. Arguments that look like workspace paths are
resolved through the server, rewritten to bucket-qualified paths under
the "holt" alias, and credentials covering them are injected through
MC_HOST_holt. Everything else is passed to mc untouched.

Examples:
  holt mc ls alice/photos
  holt mc cp report.pdf alice/photos/2024/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMc,
}

func init() {
	// Flags after the mc subcommand belong to mc, not to holt.
	mcCmd.Flags().SetInterspersed(false)
}

func runMc(cmd *cobra.Command, args []string) error {
	terms := workspaceTerms(args)
	if len(terms) == 0 {
		return fmt.Errorf("no workspace path among the arguments; run mc directly instead")
	}

	resp, err := apiClient(cmd).TokenSearch(terms)
	if err != nil {
		return err
	}
	if len(resp.Tokens) == 0 {
		return fmt.Errorf("no workspaces matched %q", strings.Join(terms, " "))
	}
	if len(resp.Tokens) > 1 {
		return fmt.Errorf("arguments span %d storage nodes, mc talks to one per alias", len(resp.Tokens))
	}
	token := resp.Tokens[0]

	rewritten := make([]string, len(args))
	copy(rewritten, args)
	for term, match := range resp.Workspaces {
		ws := match.Workspace
		key := keys.WorkspaceKey(ws.Root, &ws.Workspace, ws.Owner.Username)
		target := path.Join("holt", ws.Root.Bucket, key, match.Path)
		for i, arg := range rewritten {
			if arg == term {
				rewritten[i] = target
			}
		}
	}

	host, err := aliasHost(token)
	if err != nil {
		return err
	}
	binary, err := exec.LookPath("mc")
	if err != nil {
		return fmt.Errorf("mc not found in PATH: %v", err)
	}

	env := append(os.Environ(), "MC_HOST_holt="+host)
	return syscall.Exec(binary, append([]string{"mc"}, rewritten...), env)
}

// workspaceTerms picks the arguments worth resolving: everything after a
// known mc subcommand that is neither a flag nor an existing local path.
func workspaceTerms(args []string) []string {
	if len(args) < 2 || !lo.Contains(minioCommands, args[0]) {
		return nil
	}
	var terms []string
	for _, arg := range args[1:] {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if _, err := os.Stat(arg); err == nil {
			continue
		}
		terms = append(terms, arg)
	}
	return terms
}

// aliasHost encodes the token into mc's MC_HOST_<alias> form, pointing at
// the storage node the token was minted for.
func aliasHost(token *types.S3TokenOut) (string, error) {
	u, err := url.Parse(token.Node.APIURL)
	if err != nil {
		return "", fmt.Errorf("invalid node api url %q: %v", token.Node.APIURL, err)
	}
	return fmt.Sprintf("%s://%s:%s:%s@%s",
		u.Scheme, token.AccessKeyID, token.SecretAccessKey, token.SessionToken, u.Host), nil
}
