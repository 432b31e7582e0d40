package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tallykeep/internal/replica"
)

// ReplicasPruneOptions holds flags for replicas prune.
type ReplicasPruneOptions struct {
	*RootOptions
	Keep int
}

// PruneResult reports a retention pass.
type PruneResult struct {
	Kept    int `json:"kept"`
	Removed int `json:"removed"`
}

// NewReplicasCommand creates the replicas command group.
func NewReplicasCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replicas",
		Short: "Inspect and prune stored replicas",
	}

	cmd.AddCommand(newReplicasListCommand(rootOpts))
	cmd.AddCommand(newReplicasPruneCommand(rootOpts))

	return cmd
}

func newReplicasListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List replicas, most recent first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicasList(rootOpts, cmd)
		},
	}
}

func runReplicasList(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	ctx := context.Background()

	svc, closeFn, err := openService(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := svc.Replicas(ctx)
	if err != nil {
		return fail(f, ExitFailure, CodeReplicas, "failed to list replicas", err)
	}
	if entries == nil {
		entries = []replica.Entry{}
	}

	if opts.Format == "json" {
		return f.Success(entries)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No replicas found.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s\n", e.Key, time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339))
	}
	return nil
}

func newReplicasPruneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplicasPruneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent replicas",
		Long: `Delete replicas beyond the retention count, oldest first.

Without --keep the configured replica_retention is used. A count of 0
keeps everything.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicasPrune(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Keep, "keep", -1, "number of replicas to keep (default: configured retention)")

	return cmd
}

func runReplicasPrune(opts *ReplicasPruneOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	svc, closeFn, err := openService(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	keep := opts.Keep
	if keep < 0 {
		keep = svc.Config().ReplicaRetention
	}

	removed, err := svc.PruneReplicas(ctx, keep)
	if err != nil {
		return fail(f, ExitFailure, CodePrune, "replica pruning failed", err)
	}
	entries, err := svc.Replicas(ctx)
	if err != nil {
		return fail(f, ExitFailure, CodeReplicas, "failed to list replicas", err)
	}

	result := PruneResult{Kept: len(entries), Removed: removed}
	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d replica(s), %d kept\n", result.Removed, result.Kept)
	return nil
}
