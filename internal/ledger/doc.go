// Package ledger derives invoice settlement state from the payment ledger.
//
// An invoice's paidAmount, tdsReceived and paymentStatus are outputs of this
// package only. They can be rebuilt from scratch with Reconcile or adjusted
// incrementally with Apply and Reverse when a single payment is added or
// removed; both paths classify the same way:
//
//	settled >= total     Paid (status forced to Paid)
//	0 < settled < total  PartiallyPaid
//	settled == 0         Unpaid
//
// where settled = Σ amount + Σ tdsAmount. Status is only ever forced to Paid
// on classification, never reverted when payments are later removed.
package ledger
