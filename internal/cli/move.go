package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <x> <y>",
		Short: "Move a thread's marker",
		Long:  "Move a thread's marker to a new position, given as percentages of the slide. Values outside 0-100 are clamped.",
		Args:  cobra.ExactArgs(3),
		RunE:  runMove,
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid x position %q", args[1])
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid y position %q", args[2])
	}

	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	id, err := resolveID(s.engine.Comments(), args[0])
	if err != nil {
		return err
	}

	c, err := s.engine.Move(id, x, y)
	if err != nil {
		return fmt.Errorf("moving comment: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Thread %s moved to %s.\n", shortID(c.ID), formatPosition(c))
	return nil
}
