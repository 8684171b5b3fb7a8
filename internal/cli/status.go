package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check backend connection and sync status",
		Long:  "Shows the configured backend and deck, then syncs once and reports the result.",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

// statusReport is the status command's output.
type statusReport struct {
	Deck       string `json:"deck"`
	Backend    string `json:"backend"`
	APIKey     string `json:"apiKey"`
	Status     string `json:"status"`
	LocalOnly  bool   `json:"localOnly"`
	Failures   int    `json:"failures"`
	Pending    int    `json:"pending"`
	Threads    int    `json:"threads"`
	Unresolved int    `json:"unresolved"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	unresolved, total := s.engine.Counts()
	r := statusReport{
		Deck:       s.settings.Deck,
		Backend:    s.settings.endpoints().Read,
		APIKey:     keyPrefix(s.settings.APIKey),
		Status:     string(s.engine.Status()),
		LocalOnly:  s.engine.LocalOnly(),
		Failures:   s.engine.Failures(),
		Pending:    len(s.engine.Pending()),
		Threads:    total,
		Unresolved: unresolved,
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), r)
	}
	printStatus(cmd.OutOrStdout(), r)
	return nil
}

func printStatus(w io.Writer, r statusReport) {
	fmt.Fprintf(w, "Deck:     %s\n", r.Deck)
	if r.Backend == "" {
		fmt.Fprintln(w, "Backend:  not configured (local only)")
	} else {
		fmt.Fprintf(w, "Backend:  %s\n", r.Backend)
		if r.APIKey == "" {
			fmt.Fprintln(w, "API Key:  not configured")
			fmt.Fprintln(w, "\nRun 'sn login' to store one.")
		} else {
			fmt.Fprintf(w, "API Key:  %s…\n", r.APIKey)
		}
	}
	fmt.Fprintf(w, "Status:   %s\n", r.Status)
	if r.Failures > 0 {
		fmt.Fprintf(w, "Failures: %d\n", r.Failures)
	}
	fmt.Fprintf(w, "Pending:  %d\n", r.Pending)
	fmt.Fprintf(w, "Threads:  %d (%d open)\n", r.Threads, r.Unresolved)
}

// keyPrefix returns at most the first eight characters of key.
func keyPrefix(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
