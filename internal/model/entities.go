package model

import "github.com/shopspring/decimal"

// Client is a customer that projects and invoices belong to.
type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"taxId,omitempty"`
}

// Project is billable work for a client at an hourly rate.
type Project struct {
	ID         string          `json:"id"`
	ClientID   string          `json:"clientId"`
	Name       string          `json:"name"`
	HourlyRate decimal.Decimal `json:"hourlyRate"`
	Currency   string          `json:"currency"`
	Status     ProjectStatus   `json:"status"`
}

// TimeEntry records hours worked on a project on a given date.
//
// InvoiceID is nil until the entry is billed, and is set exactly once.
type TimeEntry struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"projectId"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Hours       decimal.Decimal `json:"hours"`
	Description string          `json:"description,omitempty"`
	Billable    bool            `json:"billable"`
	InvoiceID   *string         `json:"invoiceId,omitempty"`
}

// Invoice bills a client for a set of time entries.
//
// PaidAmount, TDSReceived and PaymentStatus are derived from the payment
// ledger and must only be written by the ledger package.
type Invoice struct {
	ID            string          `json:"id"`
	ClientID      string          `json:"clientId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	TimeEntryIDs  []string        `json:"timeEntryIds"`
	IssueDate     string          `json:"issueDate,omitempty"`
	DueDate       string          `json:"dueDate,omitempty"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Currency      string          `json:"currency"`
	Notes         string          `json:"notes,omitempty"`
	Status        InvoiceStatus   `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	TDSReceived   decimal.Decimal `json:"tdsReceived"`
}

// Settled returns the cash received plus tax withheld at source.
func (i Invoice) Settled() decimal.Decimal {
	return i.PaidAmount.Add(i.TDSReceived)
}

// Payment is one immutable entry in an invoice's payment ledger.
type Payment struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
	TDSAmount decimal.Decimal `json:"tdsAmount"`
	Date      string          `json:"date"`
	Method    string          `json:"method,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt int64           `json:"createdAt"`
}

// RecurringInvoiceTemplate describes an invoice that is issued on a schedule.
type RecurringInvoiceTemplate struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"clientId"`
	ProjectID   string          `json:"projectId,omitempty"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Frequency   Frequency       `json:"frequency"`
	NextRunDate string          `json:"nextRunDate"`
	Active      bool            `json:"active"`
}

// InvoiceReminder is a scheduled follow-up for an unpaid invoice.
type InvoiceReminder struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoiceId"`
	RemindAt  string `json:"remindAt"`
	Message   string `json:"message,omitempty"`
	Sent      bool   `json:"sent"`
}

// ExchangeRate converts amounts from one currency to another.
type ExchangeRate struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt int64           `json:"updatedAt"`
}

// BillerProfile is the issuing business printed on invoices.
type BillerProfile struct {
	Name        string `json:"name"`
	Company     string `json:"company,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	TaxID       string `json:"taxId,omitempty"`
	BankDetails string `json:"bankDetails,omitempty"`
}

// IsBlank reports whether no profile field has been filled in.
func (b BillerProfile) IsBlank() bool {
	return b == BillerProfile{}
}
