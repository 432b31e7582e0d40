package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tallykeep/internal/invoicing"
)

// InvoiceCreateOptions holds flags for invoice create.
type InvoiceCreateOptions struct {
	*RootOptions
	ClientID  string
	Entries   []string
	IssueDate string
	DueDate   string
	Notes     string
}

// NewInvoiceCommand creates the invoice command group.
func NewInvoiceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Create invoices from time entries",
	}

	cmd.AddCommand(newInvoiceCreateCommand(rootOpts))

	return cmd
}

func newInvoiceCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvoiceCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Bill unbilled time entries on a new invoice",
		Long: `Create a draft invoice for a client from billable, unbilled time entries.

The total is hours times the project's hourly rate, summed over entries.
Every entry must belong to the client and share one currency.

Examples:
  tallykeep invoice create --client c1 --entry t1 --entry t2
  tallykeep invoice create --client c1 --entry t1,t2 --due 2025-03-01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoiceCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client id (required)")
	_ = cmd.MarkFlagRequired("client")
	cmd.Flags().StringSliceVar(&opts.Entries, "entry", nil, "time entry id, repeatable (required)")
	_ = cmd.MarkFlagRequired("entry")
	cmd.Flags().StringVar(&opts.IssueDate, "issued", "", "issue date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date YYYY-MM-DD (default: issue date + 30 days)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "invoice notes")

	return cmd
}

func runInvoiceCreate(opts *InvoiceCreateOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	svc, closeFn, err := openService(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	inv, err := svc.CreateInvoice(ctx, invoicing.Draft{
		ClientID:     opts.ClientID,
		TimeEntryIDs: opts.Entries,
		IssueDate:    opts.IssueDate,
		DueDate:      opts.DueDate,
		Notes:        opts.Notes,
	})
	if err != nil {
		return fail(f, mutationExitCode(err), CodeInvoice, "invoice not created", err)
	}

	if opts.Format == "json" {
		return f.Success(inv)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s for %s: %s %s, due %s\n",
		inv.InvoiceNumber, inv.ClientID, inv.TotalAmount.StringFixed(2), inv.Currency, inv.DueDate)
	return nil
}
