package model

import "slices"

// WorkingSet is the live, mutable set of business records.
type WorkingSet struct {
	Clients            []Client                   `json:"clients"`
	Projects           []Project                  `json:"projects"`
	TimeEntries        []TimeEntry                `json:"timeEntries"`
	Invoices           []Invoice                  `json:"invoices"`
	Payments           []Payment                  `json:"payments"`
	RecurringTemplates []RecurringInvoiceTemplate `json:"recurringTemplates"`
	InvoiceReminders   []InvoiceReminder          `json:"invoiceReminders"`
	ExchangeRates      []ExchangeRate             `json:"exchangeRates"`
	BillerInfo         BillerProfile              `json:"billerInfo"`
}

// Snapshot is a versioned, timestamped copy of a working set.
//
// LastModified is the wall-clock time (ms since epoch) at which the snapshot
// was assembled, never the time of an individual record edit.
type Snapshot struct {
	WorkingSet
	Version      string `json:"version"`
	LastModified int64  `json:"lastModified"`
}

// BackupMetadata is written alongside every replica for auditing.
type BackupMetadata struct {
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
	Checksum  string `json:"checksum"`
}

// Normalize replaces nil collections with empty ones so they encode as [].
func (ws *WorkingSet) Normalize() {
	ws.Clients = orEmpty(ws.Clients)
	ws.Projects = orEmpty(ws.Projects)
	ws.TimeEntries = orEmpty(ws.TimeEntries)
	ws.Invoices = orEmpty(ws.Invoices)
	ws.Payments = orEmpty(ws.Payments)
	ws.RecurringTemplates = orEmpty(ws.RecurringTemplates)
	ws.InvoiceReminders = orEmpty(ws.InvoiceReminders)
	ws.ExchangeRates = orEmpty(ws.ExchangeRates)
	for i := range ws.Invoices {
		ws.Invoices[i].TimeEntryIDs = orEmpty(ws.Invoices[i].TimeEntryIDs)
	}
}

// Clone returns a copy that shares no slices with ws.
// The result is normalized.
func (ws WorkingSet) Clone() WorkingSet {
	out := WorkingSet{
		Clients:            slices.Clone(ws.Clients),
		Projects:           slices.Clone(ws.Projects),
		TimeEntries:        slices.Clone(ws.TimeEntries),
		Invoices:           slices.Clone(ws.Invoices),
		Payments:           slices.Clone(ws.Payments),
		RecurringTemplates: slices.Clone(ws.RecurringTemplates),
		InvoiceReminders:   slices.Clone(ws.InvoiceReminders),
		ExchangeRates:      slices.Clone(ws.ExchangeRates),
		BillerInfo:         ws.BillerInfo,
	}
	for i := range out.TimeEntries {
		if id := out.TimeEntries[i].InvoiceID; id != nil {
			v := *id
			out.TimeEntries[i].InvoiceID = &v
		}
	}
	for i := range out.Invoices {
		out.Invoices[i].TimeEntryIDs = slices.Clone(out.Invoices[i].TimeEntryIDs)
	}
	out.Normalize()
	return out
}

// Counts returns the number of records per collection, keyed by JSON name.
func (ws WorkingSet) Counts() map[string]int {
	return map[string]int{
		"clients":            len(ws.Clients),
		"projects":           len(ws.Projects),
		"timeEntries":        len(ws.TimeEntries),
		"invoices":           len(ws.Invoices),
		"payments":           len(ws.Payments),
		"recurringTemplates": len(ws.RecurringTemplates),
		"invoiceReminders":   len(ws.InvoiceReminders),
		"exchangeRates":      len(ws.ExchangeRates),
	}
}

// StrPtr returns a pointer to s. Used for TimeEntry.InvoiceID.
func StrPtr(s string) *string {
	return &s
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
