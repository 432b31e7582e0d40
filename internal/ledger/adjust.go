package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/tallykeep/internal/model"
)

// Apply adds one payment's contribution to inv and reclassifies it.
func Apply(inv model.Invoice, p model.Payment) model.Invoice {
	inv.PaidAmount = inv.PaidAmount.Add(p.Amount)
	inv.TDSReceived = inv.TDSReceived.Add(p.TDSAmount)
	return classify(inv)
}

// Reverse removes one payment's contribution from inv and reclassifies it.
// Both derived amounts are clamped at zero.
func Reverse(inv model.Invoice, p model.Payment) model.Invoice {
	inv.PaidAmount = clampZero(inv.PaidAmount.Sub(p.Amount))
	inv.TDSReceived = clampZero(inv.TDSReceived.Sub(p.TDSAmount))
	return classify(inv)
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
