// Package cli defines the cobra command tree for slidenotes.
package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/evcraddock/slidenotes/internal/db"
	"github.com/evcraddock/slidenotes/internal/logging"
)

var (
	flagFormat string
	flagDeck   string
	flagCache  string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sn",
		Short: "Comment on slide decks, online or offline",
		Long: "A tool to leave positioned comments on slides, reply to them and resolve them. " +
			"Comments are cached locally and synced with a comment backend when one is configured.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDeck, "deck", "", "deck whose comments to use (default: from config or \"default\")")
	root.PersistentFlags().StringVar(&flagCache, "cache", "", "SQLite cache path (default: ~/.config/sn/cache.db)")

	root.AddCommand(
		newListCmd(),
		newShowCmd(),
		newAddCmd(),
		newReplyCmd(),
		newEditCmd(),
		newResolveCmd(),
		newMoveCmd(),
		newRemoveCmd(),
		newSyncCmd(),
		newWatchCmd(),
		newExportCmd(),
		newImportCmd(),
		newStatusCmd(),
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newVersionCmd(),
	)

	return root
}

// setup loads .env files and configures logging before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}
	logging.Setup(s.DevMode, s.LogFile)
	return nil
}

// openCache opens the local cache database using the --cache flag or the
// default path.
func openCache() (*sql.DB, error) {
	path := flagCache
	if path == "" {
		var err error
		path, err = db.DefaultPath(db.CacheFile)
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
