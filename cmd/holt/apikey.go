package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// API key commands
var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := apiClient(cmd).APIKeyCreate()
		if err != nil {
			return err
		}
		if err := printJSON(key); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Store the secret now, it is not shown again:")
		fmt.Printf("  export WIO_API_KEY=%s:%s\n", key.KeyID, key.Secret)
		return nil
	},
}

var apikeyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := apiClient(cmd).APIKeyList()
		if err != nil {
			return err
		}
		return printJSON(keys)
	},
}

var apikeyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete all of your API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := apiClient(cmd).APIKeyDeleteAll()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Deleted %d API keys\n", n)
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeyCreateCmd)
	apikeyCmd.AddCommand(apikeyListCmd)
	apikeyCmd.AddCommand(apikeyDeleteCmd)
}
