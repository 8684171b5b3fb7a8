package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newReplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reply <id> <text>",
		Short: "Reply to a thread",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runReply,
	}
}

func runReply(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	id, err := resolveID(s.engine.Comments(), args[0])
	if err != nil {
		return err
	}

	c, err := s.engine.CreateReply(id, strings.Join(args[1:], " "))
	if err != nil {
		return fmt.Errorf("adding reply: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), c)
	}
	printCommentSingle(cmd.OutOrStdout(), "added as reply to "+shortID(id), c)
	return nil
}
