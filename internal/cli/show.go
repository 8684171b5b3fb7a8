package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/slidenotes/internal/comment"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a thread",
		Long:  "Show a comment thread with all of its replies. Given a reply, shows the thread it belongs to.",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	comments := s.engine.Comments()
	id, err := resolveID(comments, args[0])
	if err != nil {
		return err
	}

	c, _ := comment.Find(comments, id)
	if !c.IsRoot() {
		if root, ok := comment.Find(comments, c.ParentID); ok {
			c = root
		}
	}
	thread := comment.Thread{Root: c, Replies: comment.RepliesFor(comments, c.ID)}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), thread)
	}
	printThread(cmd.OutOrStdout(), thread)
	return nil
}
