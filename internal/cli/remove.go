package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Delete a comment",
		Long:    "Delete a comment. Deleting the first comment of a thread deletes the whole thread.",
		Args:    cobra.ExactArgs(1),
		RunE:    runRemove,
	}
}

func runRemove(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	id, err := resolveID(s.engine.Comments(), args[0])
	if err != nil {
		return err
	}

	removed, err := s.engine.Delete(id)
	if err != nil {
		return fmt.Errorf("removing comment: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{"removed": removed})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d comment(s).\n", len(removed))
	return nil
}
