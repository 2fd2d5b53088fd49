package main

import (
	"github.com/spf13/cobra"
)

// User commands
var userCmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"u"},
	Short:   "Inspect users",
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := apiClient(cmd).Users()
		if err != nil {
			return err
		}
		return printJSON(users)
	},
}

func init() {
	userCmd.AddCommand(userListCmd)
}
