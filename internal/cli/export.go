package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// ExportResult is reported when the document is written to a file.
type ExportResult struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all records as a checksummed document",
		Long: `Write the working set as an export document.

The document wraps the snapshot in an envelope carrying an integrity
checksum, so later imports can detect corruption.

Examples:
  tallykeep export > backup.json
  tallykeep export -o backup.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	svc, closeFn, err := openService(context.Background(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	doc, err := svc.Export()
	if err != nil {
		return fail(f, ExitFailure, CodeExport, "export failed", err)
	}

	if opts.Output == "" {
		if opts.Format == "json" {
			return f.Success(json.RawMessage(doc))
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc)
		return nil
	}

	if err := os.WriteFile(opts.Output, []byte(doc), 0o644); err != nil {
		return fail(f, ExitCommandError, CodeWrite, "failed to write export", err)
	}

	result := ExportResult{Path: opts.Output, Bytes: len(doc)}
	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bytes to %s\n", result.Bytes, result.Path)
	return nil
}
