package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search indexed workspace contents",
	Long: `Type-ahead search over path, filename, and text of every object you
can see. One line per hit: owner/workspace followed by the path.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := apiClient(cmd).Search(strings.Join(args, " "))
		if err != nil {
			return err
		}

		var envelope struct {
			Hits struct {
				Hits []struct {
					Source struct {
						OwnerName     string `json:"owner_name"`
						WorkspaceName string `json:"workspace_name"`
						Path          string `json:"path"`
					} `json:"_source"`
				} `json:"hits"`
			} `json:"hits"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fmt.Errorf("failed to decode search response: %v", err)
		}

		workspace := color.New(color.FgCyan, color.Bold)
		for _, hit := range envelope.Hits.Hits {
			workspace.Printf("%s/%s ", hit.Source.OwnerName, hit.Source.WorkspaceName)
			fmt.Println(hit.Source.Path)
		}
		return nil
	},
}
