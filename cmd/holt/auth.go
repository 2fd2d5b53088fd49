package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/holt/pkg/client"
)

// Auth commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Log in and inspect your identity",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in through the server's identity provider",
	Long: `Print the browser login URL for the server. Complete the sign-in
there, then paste the returned token here to verify it. Session tokens
expire after a day; create an API key for long-lived access.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		apiURL, _ := cmd.Flags().GetString("api-url")
		info, err := client.New(apiURL, "").Info()
		if err != nil {
			return err
		}

		fmt.Printf("Open %s/login in your browser and sign in.\n", strings.TrimRight(info.PublicAddress, "/"))
		fmt.Print("Paste the returned token: ")

		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read token: %v", err)
		}
		token := strings.TrimSpace(line)
		if token == "" {
			return fmt.Errorf("no token given")
		}

		user, err := client.New(apiURL, token).Me()
		if err != nil {
			return err
		}

		fmt.Printf("✓ Logged in as %s\n", user.Username)
		fmt.Println()
		fmt.Println("Export the token for this shell:")
		fmt.Printf("  export WIO_API_KEY=%s\n", token)
		fmt.Println()
		fmt.Println("Run 'holt apikey create' for a key that does not expire.")
		return nil
	},
}

var authInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := apiClient(cmd).Me()
		if err != nil {
			return err
		}
		return printJSON(user)
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authInfoCmd)
}
