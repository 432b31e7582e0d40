package model

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "Active"
	ProjectArchived ProjectStatus = "Archived"
)

// InvoiceStatus is the workflow state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "Draft"
	InvoiceSent    InvoiceStatus = "Sent"
	InvoicePaid    InvoiceStatus = "Paid"
	InvoiceOverdue InvoiceStatus = "Overdue"
)

// PaymentStatus is the settlement classification derived from the payment ledger.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "Unpaid"
	PaymentPartiallyPaid PaymentStatus = "PartiallyPaid"
	PaymentPaid          PaymentStatus = "Paid"
	PaymentOverdue       PaymentStatus = "Overdue"
)

// Frequency is the recurrence interval of a recurring invoice template.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// ImportMode selects how an imported snapshot is combined with the working set.
type ImportMode string

const (
	// ModeReplace substitutes every collection wholesale.
	ModeReplace ImportMode = "replace"
	// ModeMerge appends only records whose id is not already present.
	ModeMerge ImportMode = "merge"
)

// ParseImportMode validates a mode name.
func ParseImportMode(s string) (ImportMode, bool) {
	switch ImportMode(s) {
	case ModeReplace, ModeMerge:
		return ImportMode(s), true
	}
	return "", false
}
