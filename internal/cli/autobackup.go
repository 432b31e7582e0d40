package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/tallykeep/internal/logger"
)

// AutoBackupOptions holds flags for the autobackup command.
type AutoBackupOptions struct {
	*RootOptions
	Interval    time.Duration
	MetricsAddr string
}

// NewAutoBackupCommand creates the autobackup command.
func NewAutoBackupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AutoBackupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "autobackup",
		Short: "Sync on startup and then periodically until interrupted",
		Long: `Run the startup sequence (payment reconciliation, then one sync) and keep
syncing every interval until interrupted. A final sync runs on shutdown.

With --metrics-addr, Prometheus metrics are served on /metrics.

Examples:
  tallykeep autobackup
  tallykeep autobackup --interval 1m --metrics-addr 127.0.0.1:9464`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutoBackup(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "sync interval (default: configured autobackup_interval)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runAutoBackup(opts *AutoBackupOptions, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	svc, closeFn, err := openService(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()
	log := logger.WithComponent("cli")

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	metricsAddr := opts.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = svc.Config().MetricsAddr
	}
	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving metrics on http://%s/metrics\n", metricsAddr)
	}

	out, err := svc.Startup(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "startup failed", err)
	}
	if out.Err != nil {
		log.Warn().Err(out.Err).Msg("startup sync failed, continuing")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = svc.Config().AutoBackupInterval
	}
	ab := svc.StartAutoBackup(ctx, interval)
	fmt.Fprintf(cmd.OutOrStdout(), "Auto-backup running every %s. Press Ctrl-C to stop.\n", interval)

	<-ctx.Done()
	ab.Stop()

	// The context is done, so the final sync gets its own.
	final := svc.Sync(context.Background())
	if final.Err != nil {
		return WrapExitError(ExitFailure, "final sync failed", final.Err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stopped after %d periodic sync(s), final sync: %s\n", ab.Runs(), final.Action)
	return nil
}

// serveMetrics starts a Prometheus endpoint in the background.
func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log := logger.WithComponent("metrics")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	return srv
}
