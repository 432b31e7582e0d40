package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/tallykeep/internal/app"
	"github.com/roach88/tallykeep/internal/config"
	"github.com/roach88/tallykeep/internal/logger"
)

// loadConfig reads the config file and environment, then applies the
// global flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}
	if opts.Replica != "" {
		cfg.ReplicaPath = opts.Replica
		cfg.ReplicaInMemory = false
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// openService sets up logging and opens the application service.
// The returned func closes both and must be called by the command.
func openService(ctx context.Context, opts *RootOptions) (*app.Service, func(), error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	logCloser, err := logger.Setup(cfg.GetLoggerConfig())
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}

	svc, err := app.Open(ctx, cfg, app.Options{})
	if err != nil {
		logCloser.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to open stores", err)
	}

	return svc, func() {
		svc.Close()
		logCloser.Close()
	}, nil
}

// newFormatter builds an OutputFormatter bound to the command's writers.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// fail reports err through f and returns the matching exit error.
func fail(f *OutputFormatter, code int, errCode, message string, err error) error {
	var details interface{}
	if err != nil {
		details = err.Error()
	}
	if f.Format == "json" {
		_ = f.Error(errCode, message, details)
	}
	if err != nil {
		return WrapExitError(code, message, err)
	}
	return NewExitError(code, message)
}

// mutationExitCode treats a failed save as a failure and anything else,
// such as unknown ids or invalid input, as a command error.
func mutationExitCode(err error) int {
	if errors.Is(err, app.ErrSaveFailed) {
		return ExitFailure
	}
	return ExitCommandError
}
