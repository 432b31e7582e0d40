package ledger

import (
	"context"
	"errors"

	"github.com/roach88/tallykeep/internal/logger"
	"github.com/roach88/tallykeep/internal/model"
	"github.com/roach88/tallykeep/internal/store"
)

// ErrMigrationWrite is returned when reconciled invoices cannot be persisted.
var ErrMigrationWrite = errors.New("ledger: persist reconciled invoices failed")

// RunMigration reconciles every invoice in ws against its payments and
// persists the result, once. Completion is recorded under
// store.KeyPaymentMigration; later calls are no-ops unless force is set.
//
// It reports whether the pass ran.
func RunMigration(ctx context.Context, kv store.KV, ws *model.WorkingSet, force bool) (bool, error) {
	log := logger.WithComponent("ledger")

	if !force && store.Flag(ctx, kv, store.KeyPaymentMigration) {
		return false, nil
	}

	ws.Invoices = ReconcileAll(ws.Invoices, ws.Payments)
	if !store.Write(ctx, kv, store.KeyInvoices, ws.Invoices) {
		return false, ErrMigrationWrite
	}
	if !store.SetFlag(ctx, kv, store.KeyPaymentMigration) {
		log.Warn().Msg("migration flag not persisted, pass will repeat on next start")
	}

	log.Info().Int("invoices", len(ws.Invoices)).Int("payments", len(ws.Payments)).Bool("forced", force).Msg("payment status migration complete")
	return true, nil
}
