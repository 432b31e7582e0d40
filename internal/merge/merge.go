// Package merge folds an imported snapshot into the live working set.
package merge

import (
	"cmp"
	"slices"

	"github.com/roach88/tallykeep/internal/model"
)

// Apply combines current and imported according to mode and returns the new
// working set. Neither input is modified.
//
// ModeReplace substitutes every collection and the biller profile with the
// imported ones. ModeMerge appends only imported records whose id is not
// already present, so existing records always win; time entries are then
// re-sorted by date, newest first. Merge is idempotent: applying the same
// import twice equals applying it once.
//
// An unrecognized mode leaves current unchanged.
func Apply(current model.WorkingSet, imported model.Snapshot, mode model.ImportMode) model.WorkingSet {
	switch mode {
	case model.ModeReplace:
		return imported.WorkingSet.Clone()
	case model.ModeMerge:
		return mergeInto(current.Clone(), imported.WorkingSet.Clone())
	default:
		return current.Clone()
	}
}

func mergeInto(cur, in model.WorkingSet) model.WorkingSet {
	cur.Clients = union(cur.Clients, in.Clients, func(c model.Client) string { return c.ID })
	cur.Projects = union(cur.Projects, in.Projects, func(p model.Project) string { return p.ID })
	cur.TimeEntries = union(cur.TimeEntries, in.TimeEntries, func(te model.TimeEntry) string { return te.ID })
	cur.Invoices = union(cur.Invoices, in.Invoices, func(i model.Invoice) string { return i.ID })
	cur.Payments = union(cur.Payments, in.Payments, func(p model.Payment) string { return p.ID })
	cur.RecurringTemplates = union(cur.RecurringTemplates, in.RecurringTemplates, func(r model.RecurringInvoiceTemplate) string { return r.ID })
	cur.InvoiceReminders = union(cur.InvoiceReminders, in.InvoiceReminders, func(r model.InvoiceReminder) string { return r.ID })
	cur.ExchangeRates = union(cur.ExchangeRates, in.ExchangeRates, func(r model.ExchangeRate) string { return r.ID })

	// Dates are YYYY-MM-DD, so string order is date order.
	slices.SortStableFunc(cur.TimeEntries, func(a, b model.TimeEntry) int {
		return cmp.Compare(b.Date, a.Date)
	})

	if cur.BillerInfo.IsBlank() {
		cur.BillerInfo = in.BillerInfo
	}
	return cur
}

// union appends the records of in whose id is absent from cur, keeping
// first-seen order. Duplicate ids inside in collapse to the first.
func union[T any](cur, in []T, id func(T) string) []T {
	seen := make(map[string]bool, len(cur)+len(in))
	for _, r := range cur {
		seen[id(r)] = true
	}
	for _, r := range in {
		k := id(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		cur = append(cur, r)
	}
	return cur
}
