package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tallykeep/internal/syncer"
)

// SyncResult is the reported outcome of one sync.
type SyncResult struct {
	State        string `json:"state"`
	Action       string `json:"action"`
	ReplicaKey   string `json:"replica_key,omitempty"`
	SyncedAt     int64  `json:"synced_at,omitempty"`
	LastModified int64  `json:"last_modified"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local records with the newest replica",
		Long: `Run one sync between the local store and the replica store.

The newer side wins by snapshot time. A newer replica replaces the local
records; newer local records are written as a new replica; otherwise
nothing changes.

Exit codes:
  0 - Sync succeeded
  1 - Sync failed
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
	return cmd
}

func runSync(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	ctx := context.Background()

	svc, closeFn, err := openService(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	out := svc.Sync(ctx)
	if out.Err != nil {
		return fail(f, ExitFailure, CodeSync, "sync failed", out.Err)
	}

	result := SyncResult{
		State:        string(out.State),
		Action:       string(out.Action),
		ReplicaKey:   out.ReplicaKey,
		SyncedAt:     out.SyncedAt,
		LastModified: svc.Snapshot().LastModified,
	}
	if opts.Format == "json" {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	switch out.Action {
	case syncer.ActionCreated:
		fmt.Fprintf(w, "Created first replica %s\n", result.ReplicaKey)
	case syncer.ActionPushed:
		fmt.Fprintf(w, "Pushed local changes to %s\n", result.ReplicaKey)
	case syncer.ActionPulled:
		fmt.Fprintf(w, "Pulled newer replica (lastModified %d)\n", result.LastModified)
	default:
		fmt.Fprintln(w, "Already in sync")
	}
	return nil
}
