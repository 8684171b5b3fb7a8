package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the backend URL and API key",
		Long:  "Prompts for the comment backend's API key and stores it, with the server URL if given, in the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, server)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "backend URL, e.g. http://localhost:8080")

	return cmd
}

func runLogin(cmd *cobra.Command, server string) error {
	fmt.Fprint(cmd.OutOrStdout(), "Paste your API key: ")
	key, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && key == "" {
		return fmt.Errorf("reading input: %w", err)
	}

	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.APIKey = key
	if server != "" {
		cfg.ServerURL = strings.TrimRight(server, "/")
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\n✓ API key saved.")
	return nil
}

// validateAPIKey checks that the key is non-empty and has no whitespace.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if strings.ContainsAny(key, " \t\r\n") {
		return fmt.Errorf("invalid API key format (contains whitespace)")
	}
	return nil
}
