package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var (
		slide string
		x, y  float64
	)

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Start a comment thread on a slide",
		Long:  "Add a root comment to a slide. The marker position is a percentage of the slide's width and height.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, slide, x, y, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&slide, "slide", "", "slide to comment on (default: from config)")
	cmd.Flags().Float64Var(&x, "x", 50, "horizontal position, 0-100")
	cmd.Flags().Float64Var(&y, "y", 50, "vertical position, 0-100")

	return cmd
}

func runAdd(cmd *cobra.Command, slide string, x, y float64, text string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	c, err := s.engine.CreateRoot(slide, x, y, text)
	if err != nil {
		return fmt.Errorf("adding comment: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), c)
	}
	printCommentSingle(cmd.OutOrStdout(), "added on slide "+c.SlideID+" at "+formatPosition(c), c)
	return nil
}
