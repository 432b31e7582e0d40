package integrity

import (
	"fmt"

	"github.com/roach88/tallykeep/internal/model"
)

// ValidateReferences returns one warning per dangling cross-collection link.
//
// It never mutates, never drops records and never fails. Warnings are
// ordered projects, then time entries, then invoices, each in collection
// order.
func ValidateReferences(s model.Snapshot) []string {
	clients := make(map[string]bool, len(s.Clients))
	for _, c := range s.Clients {
		clients[c.ID] = true
	}
	projects := make(map[string]bool, len(s.Projects))
	for _, p := range s.Projects {
		projects[p.ID] = true
	}

	var warnings []string
	for _, p := range s.Projects {
		if !clients[p.ClientID] {
			warnings = append(warnings, fmt.Sprintf(
				"Project %q (%s) references unknown client %q", p.Name, p.ID, p.ClientID))
		}
	}
	for _, te := range s.TimeEntries {
		if !projects[te.ProjectID] {
			warnings = append(warnings, fmt.Sprintf(
				"Time entry %s on %s references unknown project %q", te.ID, te.Date, te.ProjectID))
		}
	}
	for _, inv := range s.Invoices {
		if !clients[inv.ClientID] {
			warnings = append(warnings, fmt.Sprintf(
				"Invoice %s (%s) references unknown client %q", inv.InvoiceNumber, inv.ID, inv.ClientID))
		}
	}
	return warnings
}
