package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/slidenotes/internal/comment"
)

func newResolveCmd() *cobra.Command {
	var reopen, toggle bool

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve or reopen a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], reopen, toggle)
		},
	}

	cmd.Flags().BoolVar(&reopen, "reopen", false, "mark the thread open again")
	cmd.Flags().BoolVar(&toggle, "toggle", false, "flip the thread's state")
	cmd.MarkFlagsMutuallyExclusive("reopen", "toggle")

	return cmd
}

func runResolve(cmd *cobra.Command, prefix string, reopen, toggle bool) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	id, err := resolveID(s.engine.Comments(), prefix)
	if err != nil {
		return err
	}

	var c comment.Comment
	if toggle {
		c, err = s.engine.ToggleResolved(id)
	} else {
		c, err = s.engine.SetResolved(id, !reopen)
	}
	if err != nil {
		return fmt.Errorf("resolving comment: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Thread %s is %s.\n", shortID(c.ID), formatState(c))
	return nil
}
