package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Force bool
}

// ReconcileResult reports whether the reconciliation pass ran.
type ReconcileResult struct {
	Ran      bool `json:"ran"`
	Invoices int  `json:"invoices"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute every invoice's payment status from its payments",
		Long: `Recompute paid amount, tax withheld and payment status for every
invoice from the payment ledger.

The pass runs once automatically; later runs are no-ops unless --force is
given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "re-run even if already completed")

	return cmd
}

func runReconcile(opts *ReconcileOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	svc, closeFn, err := openService(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	ran, err := svc.Reconcile(ctx, opts.Force)
	if err != nil {
		return fail(f, ExitFailure, CodeReconcile, "reconciliation failed", err)
	}

	result := ReconcileResult{Ran: ran, Invoices: len(svc.WorkingSet().Invoices)}
	if opts.Format == "json" {
		return f.Success(result)
	}
	if !ran {
		fmt.Fprintln(cmd.OutOrStdout(), "Already reconciled (use --force to re-run)")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reconciled %d invoice(s)\n", result.Invoices)
	return nil
}
