// Package invoicing creates invoices from unbilled time entries.
package invoicing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/roach88/tallykeep/internal/ledger"
	"github.com/roach88/tallykeep/internal/model"
)

// NumberPrefix prefixes every invoice number.
const NumberPrefix = "INV-"

// DefaultTerms is the gap between issue and due date when none is given.
const DefaultTerms = 30 * 24 * time.Hour

const dateLayout = "2006-01-02"

var (
	ErrClientNotFound = errors.New("invoicing: client not found")
	ErrEntryNotFound  = errors.New("invoicing: time entry not found")
	ErrEntryBilled    = errors.New("invoicing: time entry already attached to an invoice")
	ErrNotBillable    = errors.New("invoicing: time entry is not billable")
	ErrClientMismatch = errors.New("invoicing: time entry belongs to another client")
	ErrMixedCurrency  = errors.New("invoicing: time entries use different currencies")
)

var draftValidate = validator.New()

// Draft is the user's request for a new invoice.
type Draft struct {
	ClientID     string   `validate:"required"`
	TimeEntryIDs []string `validate:"required,min=1,unique,dive,required"`
	IssueDate    string   `validate:"omitempty,datetime=2006-01-02"`
	DueDate      string   `validate:"omitempty,datetime=2006-01-02"`
	Notes        string   `validate:"max=2000"`
}

// NextNumber returns the next invoice number for the whole collection.
//
// Numbers are a dense sequence: one past the highest existing number, and
// never below the collection size plus one, zero-padded to four digits.
func NextNumber(invoices []model.Invoice) string {
	highest := len(invoices)
	for _, inv := range invoices {
		n, err := strconv.Atoi(strings.TrimPrefix(inv.InvoiceNumber, NumberPrefix))
		if err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%04d", NumberPrefix, highest+1)
}

// Creator builds invoices on a working set.
type Creator struct {
	// Now supplies the default issue date. Defaults to time.Now.
	Now func() time.Time
	// NewID generates invoice ids. Defaults to model.NewID.
	NewID func() string
}

// Create bills the draft's time entries on a new invoice appended to ws.
//
// Every entry must exist, be billable, belong to one of the client's
// projects and not be attached to an invoice yet. On success each entry's
// invoiceId is set exactly once; on failure ws is unchanged.
func (c Creator) Create(ws *model.WorkingSet, d Draft) (model.Invoice, error) {
	if err := draftValidate.Struct(d); err != nil {
		return model.Invoice{}, fmt.Errorf("invalid invoice: %w", err)
	}
	if !hasClient(ws.Clients, d.ClientID) {
		return model.Invoice{}, fmt.Errorf("%w: %s", ErrClientNotFound, d.ClientID)
	}

	projects := make(map[string]model.Project, len(ws.Projects))
	for _, p := range ws.Projects {
		projects[p.ID] = p
	}
	entries := make(map[string]int, len(ws.TimeEntries))
	for i, te := range ws.TimeEntries {
		entries[te.ID] = i
	}

	total := decimal.Zero
	currency := ""
	for _, id := range d.TimeEntryIDs {
		idx, ok := entries[id]
		if !ok {
			return model.Invoice{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		te := ws.TimeEntries[idx]
		switch {
		case te.InvoiceID != nil:
			return model.Invoice{}, fmt.Errorf("%w: %s on %s", ErrEntryBilled, id, *te.InvoiceID)
		case !te.Billable:
			return model.Invoice{}, fmt.Errorf("%w: %s", ErrNotBillable, id)
		}

		p, ok := projects[te.ProjectID]
		if !ok || p.ClientID != d.ClientID {
			return model.Invoice{}, fmt.Errorf("%w: %s", ErrClientMismatch, id)
		}
		if currency != "" && p.Currency != currency {
			return model.Invoice{}, fmt.Errorf("%w: %s and %s", ErrMixedCurrency, currency, p.Currency)
		}
		currency = p.Currency
		total = total.Add(te.Hours.Mul(p.HourlyRate))
	}

	issue, due, err := c.dates(d)
	if err != nil {
		return model.Invoice{}, err
	}

	inv := model.Invoice{
		ID:            c.newID(),
		ClientID:      d.ClientID,
		InvoiceNumber: NextNumber(ws.Invoices),
		TimeEntryIDs:  append([]string{}, d.TimeEntryIDs...),
		IssueDate:     issue,
		DueDate:       due,
		TotalAmount:   total.Round(2),
		Currency:      currency,
		Notes:         d.Notes,
		Status:        model.InvoiceDraft,
	}
	inv = ledger.Reconcile(inv, nil)

	for _, id := range d.TimeEntryIDs {
		ws.TimeEntries[entries[id]].InvoiceID = model.StrPtr(inv.ID)
	}
	ws.Invoices = append(ws.Invoices, inv)
	return inv, nil
}

func (c Creator) dates(d Draft) (issue, due string, err error) {
	issue = d.IssueDate
	if issue == "" {
		issue = c.now().Format(dateLayout)
	}
	due = d.DueDate
	if due == "" {
		t, err := time.Parse(dateLayout, issue)
		if err != nil {
			return "", "", fmt.Errorf("issue date: %w", err)
		}
		due = t.Add(DefaultTerms).Format(dateLayout)
	}
	if due < issue {
		return "", "", fmt.Errorf("invalid invoice: due date %s before issue date %s", due, issue)
	}
	return issue, due, nil
}

func (c Creator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Creator) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return model.NewID()
}

func hasClient(clients []model.Client, id string) bool {
	for _, c := range clients {
		if c.ID == id {
			return true
		}
	}
	return false
}
