package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/tallykeep/internal/model"
)

// Classify returns the payment status of settled against total.
func Classify(settled, total decimal.Decimal) model.PaymentStatus {
	switch {
	case settled.GreaterThanOrEqual(total):
		return model.PaymentPaid
	case settled.IsPositive():
		return model.PaymentPartiallyPaid
	default:
		return model.PaymentUnpaid
	}
}

// Reconcile recomputes inv's derived fields from the payments recorded
// against it. The caller passes only that invoice's payments.
//
// Reconcile is idempotent.
func Reconcile(inv model.Invoice, payments []model.Payment) model.Invoice {
	paid := decimal.Zero
	tds := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
		tds = tds.Add(p.TDSAmount)
	}

	inv.PaidAmount = paid
	inv.TDSReceived = tds
	return classify(inv)
}

// ReconcileAll reconciles every invoice against the payments that reference
// it. Payments for unknown invoices are ignored. The input is not modified.
func ReconcileAll(invoices []model.Invoice, payments []model.Payment) []model.Invoice {
	byInvoice := make(map[string][]model.Payment, len(invoices))
	for _, p := range payments {
		byInvoice[p.InvoiceID] = append(byInvoice[p.InvoiceID], p)
	}

	out := make([]model.Invoice, len(invoices))
	for i, inv := range invoices {
		out[i] = Reconcile(inv, byInvoice[inv.ID])
	}
	return out
}

func classify(inv model.Invoice) model.Invoice {
	inv.PaymentStatus = Classify(inv.Settled(), inv.TotalAmount)
	if inv.PaymentStatus == model.PaymentPaid {
		inv.Status = model.InvoicePaid
	}
	return inv
}
