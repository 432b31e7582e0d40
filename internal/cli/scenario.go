package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tallykeep/internal/harness"
	"github.com/roach88/tallykeep/internal/logger"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <path>",
		Short: "Run multi-device sync scenarios",
		Long: `Run YAML scenarios that drive one or more simulated devices through
sync, import, export and ledger operations against a shared replica store.

Each scenario runs in its own temporary directory with a deterministic
clock, so the configured database and replica paths are never touched.
path may be a single file or a directory searched for .yaml files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing path, bad filter)

Examples:
  tallykeep scenario ./scenarios
  tallykeep scenario ./scenarios --filter "ledger_*"
  tallykeep scenario ./scenarios/two_device_pull.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *ScenarioOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fail(f, ExitCommandError, CodeNotFound, fmt.Sprintf("scenario path not found: %s", path), nil)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logCloser, err := logger.Setup(cfg.GetLoggerConfig())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	defer logCloser.Close()

	files, err := harness.FindScenarios(path, opts.Filter)
	if err != nil {
		return fail(f, ExitCommandError, CodeScenarioPath, "failed to find scenarios", err)
	}

	result := harness.RunSuite(files)

	if opts.Format == "json" {
		if result.Failed > 0 {
			message := fmt.Sprintf("%d scenario(s) failed", result.Failed)
			_ = f.Error(CodeScenarioFailed, message, result)
			return NewExitError(ExitFailure, message)
		}
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	if result.TotalScenarios == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, s := range result.Scenarios {
		if s.Pass {
			fmt.Fprintf(w, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Scenario Summary: %d passed, %d failed, %d total\n",
		result.Passed, result.Failed, result.TotalScenarios)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
