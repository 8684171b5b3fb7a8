package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Replace the text of a comment",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runEdit,
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	id, err := resolveID(s.engine.Comments(), args[0])
	if err != nil {
		return err
	}

	c, err := s.engine.UpdateText(id, strings.Join(args[1:], " "))
	if err != nil {
		return fmt.Errorf("editing comment: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), c)
	}
	printCommentSingle(cmd.OutOrStdout(), "updated", c)
	return nil
}
