package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/slidenotes/internal/syncengine"
)

func newSyncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the backend's comments into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "merge even when the backend reports no change")

	return cmd
}

func runSync(cmd *cobra.Command, force bool) error {
	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.close()

	err = s.engine.Sync(cmd.Context(), syncengine.SyncOptions{Force: force})
	if errors.Is(err, syncengine.ErrLocalOnly) {
		return fmt.Errorf("no comment backend configured; set server_url or endpoints in the config")
	}
	if err != nil {
		return fmt.Errorf("syncing: %w", err)
	}

	unresolved, total := s.engine.Counts()
	pending := len(s.engine.Pending())
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"status":     s.engine.Status(),
			"threads":    total,
			"unresolved": unresolved,
			"pending":    pending,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Synced: %d threads (%d open), %d pending change(s).\n", total, unresolved, pending)
	return nil
}
