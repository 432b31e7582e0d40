package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tallykeep/internal/model"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Mode string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an export document or raw snapshot",
		Long: `Import records from a file.

Accepted layouts are checksummed export documents, bare snapshots and the
legacy layout without version fields. A checksum mismatch is reported as
a warning and does not block the import.

Modes:
  replace - substitute every collection with the imported one
  merge   - add only records whose id is not already present

Exit codes:
  0 - Import applied (warnings may be reported)
  1 - Document rejected
  2 - Command error (file not found, invalid mode, etc.)

Examples:
  tallykeep import backup.json
  tallykeep import backup.json --mode replace`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(model.ModeMerge), "import mode (replace|merge)")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command, path string) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	mode, ok := model.ParseImportMode(opts.Mode)
	if !ok {
		return fail(f, ExitCommandError, CodeMode, fmt.Sprintf("invalid mode %q: must be replace or merge", opts.Mode), nil)
	}

	doc, err := os.ReadFile(path)
	if err != nil {
		return fail(f, ExitCommandError, CodeRead, "failed to read import file", err)
	}

	svc, closeFn, err := openService(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svc.Import(ctx, doc, mode)
	if err != nil {
		return fail(f, ExitFailure, CodeSave, "import could not be saved", err)
	}

	if opts.Format == "json" {
		if !res.Success {
			_ = f.Error(CodeImport, "import rejected", res)
			return NewExitError(ExitFailure, "import rejected")
		}
		return f.SuccessWithWarnings(res, res.Warnings)
	}

	w := cmd.OutOrStdout()
	for _, msg := range res.Errors {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
	f.Warn(res.Warnings)
	if !res.Success {
		return NewExitError(ExitFailure, "import rejected")
	}

	counts := res.Data.Counts()
	fmt.Fprintf(w, "Imported (%s): %d clients, %d projects, %d time entries, %d invoices, %d payments\n",
		mode, counts["clients"], counts["projects"], counts["timeEntries"], counts["invoices"], counts["payments"])
	return nil
}
