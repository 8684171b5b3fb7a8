package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// shortIDLen is how much of an id the tables show. Commands accept any
// unique prefix.
const shortIDLen = 12

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printThreadTable prints threads as a formatted table.
func printThreadTable(out io.Writer, threads []comment.Thread) error {
	if len(threads) == 0 {
		_, err := fmt.Fprintln(out, "No comments.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tSLIDE\tPOSITION\tREPLIES\tSTATE\tAUTHOR\tTEXT"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t-----\t--------\t-------\t-----\t------\t----"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	open := 0
	for _, t := range threads {
		if !t.Root.Resolved {
			open++
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			shortID(t.Root.ID), t.Root.SlideID, formatPosition(t.Root), len(t.Replies),
			formatState(t.Root), authorName(t.Root), truncate(oneLine(t.Root.Text), 50)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	_, err := fmt.Fprintf(out, "\nTotal: %d threads (%d open)\n", len(threads), open)
	return err
}

// printThread prints a root and its replies in text format.
func printThread(w io.Writer, t comment.Thread) {
	r := t.Root
	fmt.Fprintf(w, "Comment %s\n", r.ID)
	fmt.Fprintf(w, "  Slide:    %s\n", r.SlideID)
	fmt.Fprintf(w, "  Position: %s\n", formatPosition(r))
	fmt.Fprintf(w, "  State:    %s\n", formatState(r))
	fmt.Fprintf(w, "  Author:   %s\n", authorName(r))
	fmt.Fprintf(w, "  Created:  %s\n", formatTime(r.CreatedAt))
	fmt.Fprintf(w, "\n  %s\n", r.Text)

	if len(t.Replies) == 0 {
		return
	}
	fmt.Fprintf(w, "\nReplies (%d):\n", len(t.Replies))
	for _, c := range t.Replies {
		fmt.Fprintf(w, "\n[%s] %s (%s)\n  %s\n", formatTime(c.CreatedAt), shortID(c.ID), authorName(c), c.Text)
	}
}

// printCommentSingle prints a one-line confirmation for a written comment.
func printCommentSingle(w io.Writer, verb string, c comment.Comment) {
	fmt.Fprintf(w, "Comment %s %s.\n  %s\n", shortID(c.ID), verb, c.Text)
}

func formatPosition(c comment.Comment) string {
	return fmt.Sprintf("%.1f%%, %.1f%%", c.X, c.Y)
}

func formatState(c comment.Comment) string {
	if c.Resolved {
		return "resolved"
	}
	return "open"
}

// formatTime shortens a wire timestamp for display. Unparseable values are
// shown as they are.
func formatTime(s string) string {
	t := comment.ParseTime(s)
	if t.IsZero() {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}

func authorName(c comment.Comment) string {
	if c.Author == "" {
		return "anonymous"
	}
	return c.Author
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
