package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the working set's shape and references",
		Long: `Validate the working set as a snapshot and list dangling references.

Dangling references are warnings: they are reported but do not fail the
check.

Exit codes:
  0 - Working set is valid
  1 - Working set failed shape validation
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	svc, closeFn, err := openService(context.Background(), opts)
	if err != nil {
		return err
	}
	defer closeFn()

	report := svc.Check()

	if opts.Format == "json" {
		if !report.Valid {
			_ = f.Error(CodeShape, "working set failed validation", report)
			return NewExitError(ExitFailure, "working set failed validation")
		}
		return f.Success(report)
	}

	w := cmd.OutOrStdout()
	names := make([]string, 0, len(report.Counts))
	for name := range report.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f.VerboseLog("%s: %d", name, report.Counts[name])
	}

	for _, msg := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
	if !report.Valid {
		fmt.Fprintf(w, "✗ %s\n", report.ShapeError)
		return NewExitError(ExitFailure, "working set failed validation")
	}
	fmt.Fprintf(w, "✓ Working set valid (%d warning(s))\n", len(report.Warnings))
	return nil
}
