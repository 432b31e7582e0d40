package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/tallykeep/internal/ledger"
	"github.com/roach88/tallykeep/internal/model"
)

// PaymentAddOptions holds flags for payment add.
type PaymentAddOptions struct {
	*RootOptions
	InvoiceID string
	Amount    string
	TDS       string
	Date      string
	Method    string
	Notes     string
}

// PaymentResult reports a payment and its invoice after reconciliation.
type PaymentResult struct {
	Payment model.Payment `json:"payment"`
	Invoice model.Invoice `json:"invoice"`
}

// NewPaymentCommand creates the payment command group.
func NewPaymentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record or remove invoice payments",
	}

	cmd.AddCommand(newPaymentAddCommand(rootOpts))
	cmd.AddCommand(newPaymentRemoveCommand(rootOpts))

	return cmd
}

func newPaymentAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PaymentAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a payment against an invoice",
		Long: `Record a payment and reconcile its invoice.

Tax withheld at source (--tds) counts toward settlement alongside the cash
amount.

Examples:
  tallykeep payment add --invoice inv-1 --amount 450
  tallykeep payment add --invoice inv-1 --amount 450 --tds 50 --method wire`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaymentAdd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InvoiceID, "invoice", "", "invoice id (required)")
	_ = cmd.MarkFlagRequired("invoice")
	cmd.Flags().StringVar(&opts.Amount, "amount", "0", "cash amount received")
	cmd.Flags().StringVar(&opts.TDS, "tds", "0", "tax withheld at source")
	cmd.Flags().StringVar(&opts.Date, "date", "", "payment date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&opts.Method, "method", "", "payment method")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form notes")

	return cmd
}

func runPaymentAdd(opts *PaymentAddOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	amount, err := decimal.NewFromString(opts.Amount)
	if err != nil {
		return fail(f, ExitCommandError, CodeAmount, "invalid --amount", err)
	}
	tds, err := decimal.NewFromString(opts.TDS)
	if err != nil {
		return fail(f, ExitCommandError, CodeAmount, "invalid --tds", err)
	}
	date := opts.Date
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}

	svc, closeFn, err := openService(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	p, err := svc.RecordPayment(ctx, ledger.PaymentInput{
		InvoiceID: opts.InvoiceID,
		Amount:    amount,
		TDSAmount: tds,
		Date:      date,
		Method:    opts.Method,
		Notes:     opts.Notes,
	})
	if err != nil {
		return fail(f, mutationExitCode(err), CodePayment, "payment not recorded", err)
	}

	result := PaymentResult{Payment: p, Invoice: findInvoice(svc.WorkingSet().Invoices, p.InvoiceID)}
	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded payment %s: %s %s, invoice %s now %s\n",
		p.ID, p.Amount.Add(p.TDSAmount).StringFixed(2), result.Invoice.Currency,
		result.Invoice.InvoiceNumber, result.Invoice.PaymentStatus)
	return nil
}

func newPaymentRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <payment-id>",
		Short:         "Delete a payment and reverse its effect on the invoice",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaymentRemove(rootOpts, cmd, args[0])
		},
	}
}

func runPaymentRemove(opts *RootOptions, cmd *cobra.Command, id string) error {
	f := newFormatter(opts, cmd)
	ctx := context.Background()

	svc, closeFn, err := openService(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	p, err := svc.RemovePayment(ctx, id)
	if err != nil {
		return fail(f, mutationExitCode(err), CodePayment, "payment not removed", err)
	}

	result := PaymentResult{Payment: p, Invoice: findInvoice(svc.WorkingSet().Invoices, p.InvoiceID)}
	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed payment %s, invoice %s now %s\n",
		p.ID, result.Invoice.InvoiceNumber, result.Invoice.PaymentStatus)
	return nil
}

func findInvoice(invoices []model.Invoice, id string) model.Invoice {
	for _, inv := range invoices {
		if inv.ID == id {
			return inv
		}
	}
	return model.Invoice{}
}
