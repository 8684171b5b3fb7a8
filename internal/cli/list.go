package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/slidenotes/internal/comment"
)

func newListCmd() *cobra.Command {
	var (
		slide    string
		openOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List comment threads",
		Long:  "List the comment threads of the deck, optionally only those on one slide or still open.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, slide, openOnly)
		},
	}

	cmd.Flags().StringVar(&slide, "slide", "", "only threads on this slide")
	cmd.Flags().BoolVar(&openOnly, "open", false, "only unresolved threads")

	return cmd
}

func runList(cmd *cobra.Command, slide string, openOnly bool) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	threads := comment.Threads(s.engine.Comments(), slide)
	if openOnly {
		open := threads[:0]
		for _, t := range threads {
			if !t.Root.Resolved {
				open = append(open, t)
			}
		}
		threads = open
	}

	if isJSON() {
		if threads == nil {
			threads = []comment.Thread{}
		}
		return printJSON(cmd.OutOrStdout(), threads)
	}
	return printThreadTable(cmd.OutOrStdout(), threads)
}
