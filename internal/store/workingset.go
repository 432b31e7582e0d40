package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/tallykeep/internal/logger"
	"github.com/roach88/tallykeep/internal/model"
)

// Logical keys of the working set collections.
const (
	KeyClients            = "clients"
	KeyProjects           = "projects"
	KeyTimeEntries        = "timeEntries"
	KeyInvoices           = "invoices"
	KeyPayments           = "payments"
	KeyRecurringTemplates = "recurringTemplates"
	KeyInvoiceReminders   = "invoiceReminders"
	KeyExchangeRates      = "exchangeRates"
	KeyBillerInfo         = "billerInfo"
)

// LoadWorkingSet reads every collection from kv.
// Missing or corrupted keys load as empty collections.
func LoadWorkingSet(ctx context.Context, kv KV) model.WorkingSet {
	ws := model.WorkingSet{
		Clients:            Read(ctx, kv, KeyClients, []model.Client{}),
		Projects:           Read(ctx, kv, KeyProjects, []model.Project{}),
		TimeEntries:        Read(ctx, kv, KeyTimeEntries, []model.TimeEntry{}),
		Invoices:           Read(ctx, kv, KeyInvoices, []model.Invoice{}),
		Payments:           Read(ctx, kv, KeyPayments, []model.Payment{}),
		RecurringTemplates: Read(ctx, kv, KeyRecurringTemplates, []model.RecurringInvoiceTemplate{}),
		InvoiceReminders:   Read(ctx, kv, KeyInvoiceReminders, []model.InvoiceReminder{}),
		ExchangeRates:      Read(ctx, kv, KeyExchangeRates, []model.ExchangeRate{}),
		BillerInfo:         Read(ctx, kv, KeyBillerInfo, model.BillerProfile{}),
	}
	ws.Normalize()
	return ws
}

// SaveWorkingSet writes every collection to kv.
// When kv implements Batcher the write is atomic across all keys.
func SaveWorkingSet(ctx context.Context, kv KV, ws model.WorkingSet) bool {
	ws.Normalize()
	entries, err := encodeWorkingSet(ws)
	if err != nil {
		log := logger.WithComponent("store")
		log.Error().Err(err).Msg("encode working set failed")
		return false
	}

	if b, ok := kv.(Batcher); ok {
		if err := b.PutMany(ctx, entries); err != nil {
			log := logger.WithComponent("store")
			log.Error().Err(err).Msg("save working set failed")
			return false
		}
		return true
	}

	for key, raw := range entries {
		if err := kv.Put(ctx, key, raw); err != nil {
			log := logger.WithComponent("store")
			log.Error().Err(err).Str("key", key).Msg("save working set failed")
			return false
		}
	}
	return true
}

func encodeWorkingSet(ws model.WorkingSet) (map[string][]byte, error) {
	values := map[string]any{
		KeyClients:            ws.Clients,
		KeyProjects:           ws.Projects,
		KeyTimeEntries:        ws.TimeEntries,
		KeyInvoices:           ws.Invoices,
		KeyPayments:           ws.Payments,
		KeyRecurringTemplates: ws.RecurringTemplates,
		KeyInvoiceReminders:   ws.InvoiceReminders,
		KeyExchangeRates:      ws.ExchangeRates,
		KeyBillerInfo:         ws.BillerInfo,
	}

	entries := make(map[string][]byte, len(values))
	for key, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		entries[key] = raw
	}
	return entries, nil
}
