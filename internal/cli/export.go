package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the deck's comments as JSON",
		Long:  "Write every comment of the deck as a JSON array, the format import reads. Use it to share comments while the backend is unavailable.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, output string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	data, err := s.engine.Export()
	if err != nil {
		return fmt.Errorf("exporting comments: %w", err)
	}
	data = append(data, '\n')

	if output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d comment(s) to %s.\n", len(s.engine.Comments()), output)
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add comments from an export",
		Long:  "Add the comments of an export file that the deck does not have yet. Existing comments are left untouched.",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	n, err := s.engine.Import(data)
	if err != nil {
		return fmt.Errorf("importing comments: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]int{"imported": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d comment(s).\n", n)
	return nil
}
