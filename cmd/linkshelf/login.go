package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkshelf/internal/controller"
	"github.com/MrSnakeDoc/linkshelf/internal/credential"
)

var loginGenerate bool

var loginCmd = &cobra.Command{
	Use:   "login [API_KEY]",
	Short: "Validate and store an API key",
	Long: `Login checks the API key with the remote service and stores it only when
it is accepted. Without an argument the key is read from stdin; with
--generate the service issues a new one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginGenerate, "generate", false, "ask the service for a new API key and print it")
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Credentials.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
		return nil
	},
}

func runLogin(cmd *cobra.Command, args []string) error {
	var key string
	switch {
	case loginGenerate:
		if len(args) == 1 {
			return fmt.Errorf("--generate does not take an API key")
		}
		generated, err := application.Gateway.GenerateAPIKey(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🔑 new API key: %s\n", generated)
		key = generated
	case len(args) == 1:
		key = args[0]
	default:
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read API key: %w", err)
		}
		key = strings.TrimSpace(line)
	}

	st, err := application.Controller.Dispatch(cmd.Context(), controller.Command{
		Type:   controller.CmdSetCredential,
		APIKey: key,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "logged in with %s, %d links synced\n", credential.Redact(strings.TrimSpace(key)), st.Total)
	return nil
}
