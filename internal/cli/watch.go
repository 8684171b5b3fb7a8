package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/slidenotes/internal/comment"
	"github.com/evcraddock/slidenotes/internal/syncengine"
)

func newWatchCmd() *cobra.Command {
	var slide string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the cache in sync and print changes",
		Long:  "Poll the backend until interrupted, printing the sync status and thread counts whenever they change.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, slide)
		},
	}

	cmd.Flags().StringVar(&slide, "slide", "", "count only threads on this slide")

	return cmd
}

// watchLine is one printed change.
type watchLine struct {
	Time       string            `json:"time"`
	Status     syncengine.Status `json:"status"`
	Threads    int               `json:"threads"`
	Unresolved int               `json:"unresolved"`
}

func runWatch(cmd *cobra.Command, slide string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	stop := s.engine.Watch(func(v syncengine.View) {
		if !v.Hydrated() {
			return
		}

		line := watchLine{
			Time:       time.Now().Format("15:04:05"),
			Status:     v.Status(),
			Threads:    v.RootCount(),
			Unresolved: v.UnresolvedCount(),
		}
		if slide != "" {
			roots := v.RootsForSurface(slide)
			line.Threads = len(roots)
			line.Unresolved = comment.CountUnresolvedRoots(roots)
		}

		if isJSON() {
			if err := printJSON(out, line); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: writing output: %v\n", err)
			}
			return
		}
		fmt.Fprintf(out, "%s  %-8s  %d threads, %d open\n", line.Time, line.Status, line.Threads, line.Unresolved)
	})
	defer stop()

	s.engine.Start(ctx)
	<-ctx.Done()
	return nil
}
