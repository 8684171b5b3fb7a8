package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/slidenotes/internal/db"
	"github.com/evcraddock/slidenotes/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		port   int
		dbPath string
		newKey bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a comment backend",
		Long:  "Start an HTTP server implementing the comment backend over SQLite. Clients authenticate with the configured API key.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port, dbPath, newKey)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: ~/.config/sn/server.db)")
	cmd.Flags().BoolVar(&newKey, "new-key", false, "generate an API key, store it in the config and serve with it")

	return cmd
}

func runServe(cmd *cobra.Command, port int, dbPath string, newKey bool) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if newKey {
		s.APIKey, err = storeNewKey(port)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key: %s\n", s.APIKey)
	}
	if s.APIKey == "" {
		return fmt.Errorf("an API key is required to serve; set SN_API_KEY or api_key in the config")
	}

	if dbPath == "" {
		dbPath, err = db.DefaultPath(db.ServerFile)
		if err != nil {
			return err
		}
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer closeDB(database)

	srv, err := web.NewServer(database, s.APIKey)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving comments on http://localhost:%d\n", port)
	return srv.ListenAndServe(cmd.Context(), port)
}

// storeNewKey generates an API key and saves it, with the local server URL
// when none is set, so this machine's CLI talks to the new backend.
func storeNewKey(port int) (string, error) {
	key, err := web.GenerateAPIKey()
	if err != nil {
		return "", err
	}

	cfg, err := loadConfig()
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	cfg.APIKey = key
	if cfg.ServerURL == "" {
		cfg.ServerURL = fmt.Sprintf("http://localhost:%d", port)
	}
	if err := saveConfig(cfg); err != nil {
		return "", fmt.Errorf("saving config: %w", err)
	}
	return key, nil
}
