// Package app wires the stores, sync coordinator, codec, merge engine and
// ledger into one service owning the live working set.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/tallykeep/internal/checksum"
	"github.com/roach88/tallykeep/internal/cloudkv"
	"github.com/roach88/tallykeep/internal/codec"
	"github.com/roach88/tallykeep/internal/config"
	"github.com/roach88/tallykeep/internal/integrity"
	"github.com/roach88/tallykeep/internal/invoicing"
	"github.com/roach88/tallykeep/internal/ledger"
	"github.com/roach88/tallykeep/internal/logger"
	"github.com/roach88/tallykeep/internal/merge"
	"github.com/roach88/tallykeep/internal/model"
	"github.com/roach88/tallykeep/internal/replica"
	"github.com/roach88/tallykeep/internal/snapshot"
	"github.com/roach88/tallykeep/internal/store"
	"github.com/roach88/tallykeep/internal/syncer"
)

var (
	ErrSyncInProgress = errors.New("app: sync already in progress")
	ErrSaveFailed     = errors.New("app: working set could not be saved")
)

// Options overrides service dependencies, mainly for tests.
type Options struct {
	Clock snapshot.Clock
	NewID func() string
}

// Service owns the working set and the snapshot last assembled from it.
//
// Thread-safety: all methods are safe for concurrent use. Syncs do not
// overlap; a second Sync while one runs returns ErrSyncInProgress.
type Service struct {
	cfg      *config.Config
	primary  *store.Store
	cloud    *cloudkv.Store
	replicas *replica.Store
	coord    *syncer.Coordinator
	clock    snapshot.Clock
	newID    func() string
	log      zerolog.Logger

	mu      sync.Mutex
	ws      model.WorkingSet
	current model.Snapshot
}

// Open opens both persistence tiers, loads the working set and runs the
// one-time payment status migration.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Service, error) {
	primary, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open primary store: %w", err)
	}

	replicaCfg := cfg.GetReplicaConfig()
	badgerLog := logger.WithComponent("badger")
	replicaCfg.Logger = &badgerLog
	cloud, err := cloudkv.Open(replicaCfg)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("open replica store: %w", err)
	}

	s := &Service{
		cfg:      cfg,
		primary:  primary,
		cloud:    cloud,
		replicas: replica.New(cloud),
		clock:    opts.Clock,
		newID:    opts.NewID,
		log:      logger.WithComponent("app"),
	}
	if s.clock == nil {
		s.clock = snapshot.SystemClock
	}
	if s.newID == nil {
		s.newID = model.NewID
	}
	s.coord = syncer.New(primary, s.replicas, syncer.Options{
		Retention: cfg.ReplicaRetention,
		Clock:     s.clock,
	})

	s.load(ctx)
	if _, err := s.Reconcile(ctx, false); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// load reads the working set and restores its snapshot time. A working set
// with content but no recorded time is stamped now; an empty, never-edited
// one keeps 0 so any existing replica wins the first sync.
func (s *Service) load(ctx context.Context) {
	s.ws = store.LoadWorkingSet(ctx, s.primary)

	lastModified := store.LastModified(ctx, s.primary)
	if lastModified == 0 && !isEmpty(s.ws) {
		lastModified = s.clock.Now().UnixMilli()
		store.RecordModified(ctx, s.primary, lastModified)
	}
	s.current = model.Snapshot{
		WorkingSet:   s.ws.Clone(),
		Version:      model.SchemaVersion,
		LastModified: lastModified,
	}

	s.log.Debug().
		Interface("counts", s.ws.Counts()).
		Int64("lastModified", lastModified).
		Msg("working set loaded")
}

// Close releases both stores.
func (s *Service) Close() error {
	return errors.Join(s.cloud.Close(), s.primary.Close())
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// WorkingSet returns a copy of the live working set.
func (s *Service) WorkingSet() model.WorkingSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.Clone()
}

// Snapshot returns the snapshot last assembled from the working set.
// It implements syncer.Source.
func (s *Service) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.current
	snap.WorkingSet = s.current.WorkingSet.Clone()
	return snap
}

// ApplyPulled adopts a replica returned by sync, keeping its timestamp so
// the next sync sees no change. It implements syncer.Puller.
func (s *Service) ApplyPulled(snap model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	ws := snap.WorkingSet.Clone()
	if !store.SaveWorkingSet(ctx, s.primary, ws) {
		s.log.Error().Int64("lastModified", snap.LastModified).Msg("pulled replica could not be saved")
		return
	}
	store.RecordModified(ctx, s.primary, snap.LastModified)
	s.ws = ws
	s.current = model.Snapshot{WorkingSet: ws.Clone(), Version: model.SchemaVersion, LastModified: snap.LastModified}
	s.log.Info().Int64("lastModified", snap.LastModified).Msg("adopted newer replica")
}

// mutate applies fn to a copy of the working set, persists the result and
// assembles a new snapshot. Nothing changes when fn or the save fails.
func (s *Service) mutate(ctx context.Context, fn func(ws *model.WorkingSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.ws.Clone()
	if err := fn(&ws); err != nil {
		return err
	}
	if !store.SaveWorkingSet(ctx, s.primary, ws) {
		return ErrSaveFailed
	}

	s.ws = ws
	s.current = snapshot.Build(ws, s.clock)
	store.RecordModified(ctx, s.primary, s.current.LastModified)
	return nil
}

// Sync runs one sync of the current snapshot and adopts pulled data.
func (s *Service) Sync(ctx context.Context) syncer.Outcome {
	out, ran := s.coord.TrySync(ctx, s.Snapshot())
	if !ran {
		return syncer.Outcome{State: syncer.StateError, Err: ErrSyncInProgress}
	}
	if out.Err == nil && out.Action == syncer.ActionPulled && out.Data != nil {
		s.ApplyPulled(*out.Data)
	}
	return out
}

// SyncState returns the coordinator's state.
func (s *Service) SyncState() syncer.State {
	return s.coord.State()
}

// Startup runs the one-time migration and then one sync.
func (s *Service) Startup(ctx context.Context) (syncer.Outcome, error) {
	if _, err := s.Reconcile(ctx, false); err != nil {
		return syncer.Outcome{}, err
	}
	return s.Sync(ctx), nil
}

// StartAutoBackup syncs the service's snapshot every interval until the
// returned handle is stopped.
func (s *Service) StartAutoBackup(ctx context.Context, interval time.Duration) *syncer.AutoBackup {
	if interval <= 0 {
		interval = s.cfg.AutoBackupInterval
	}
	return s.coord.StartAutoBackup(ctx, interval, s)
}

// Export renders the working set as a checksummed export document.
func (s *Service) Export() (string, error) {
	snap := snapshot.Build(s.WorkingSet(), s.clock)
	return codec.Exporter{Clock: s.clock, ExportedBy: s.cfg.ExportedBy}.Export(snap)
}

// Import parses doc and, when it is acceptable, folds it into the working
// set with mode. Invoices are reconciled against the combined payments
// afterwards, so a merged payment settles an invoice already on file.
// The returned Result is the codec's verdict; err is set
// only when an accepted import could not be saved.
func (s *Service) Import(ctx context.Context, doc []byte, mode model.ImportMode) (codec.Result, error) {
	res := codec.NewImporter(s.clock).Import(doc, mode)
	if !res.Success {
		return res, nil
	}

	err := s.mutate(ctx, func(ws *model.WorkingSet) error {
		*ws = merge.Apply(*ws, *res.Data, mode)
		ws.Invoices = ledger.ReconcileAll(ws.Invoices, ws.Payments)
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("import: %w", err)
	}

	s.log.Info().Str("mode", string(mode)).Int("warnings", len(res.Warnings)).Msg("import applied")
	return res, nil
}

// CheckReport is the integrity verdict on the working set.
type CheckReport struct {
	Valid      bool           `json:"valid"`
	ShapeError string         `json:"shape_error,omitempty"`
	Warnings   []string       `json:"warnings"`
	Counts     map[string]int `json:"counts"`
}

// Check runs the shape and reference checks against the working set.
func (s *Service) Check() CheckReport {
	snap := snapshot.Build(s.WorkingSet(), s.clock)

	report := CheckReport{Valid: true, Warnings: []string{}, Counts: snap.Counts()}
	if err := integrity.ValidateSnapshot(snap); err != nil {
		report.Valid = false
		report.ShapeError = err.Error()
	}
	report.Warnings = append(report.Warnings, integrity.ValidateReferences(snap)...)
	return report
}

// Reconcile runs the payment status migration; force re-runs it.
func (s *Service) Reconcile(ctx context.Context, force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.ws.Clone()
	before := checksum.MustOf(ws.Invoices)
	ran, err := ledger.RunMigration(ctx, s.primary, &ws, force)
	if err != nil || !ran {
		return ran, err
	}

	s.ws = ws
	// An unchanged invoice list keeps the snapshot time.
	if checksum.MustOf(ws.Invoices) == before {
		s.current.WorkingSet = ws.Clone()
		return true, nil
	}
	s.current = snapshot.Build(ws, s.clock)
	store.RecordModified(ctx, s.primary, s.current.LastModified)
	return true, nil
}

// RecordPayment books a payment and reconciles its invoice.
func (s *Service) RecordPayment(ctx context.Context, in ledger.PaymentInput) (model.Payment, error) {
	var p model.Payment
	err := s.mutate(ctx, func(ws *model.WorkingSet) error {
		var err error
		p, err = s.book().RecordPayment(ws, in)
		return err
	})
	return p, err
}

// RemovePayment deletes a payment and reverses its contribution.
func (s *Service) RemovePayment(ctx context.Context, id string) (model.Payment, error) {
	var p model.Payment
	err := s.mutate(ctx, func(ws *model.WorkingSet) error {
		var err error
		p, err = s.book().RemovePayment(ws, id)
		return err
	})
	return p, err
}

// CreateInvoice bills unbilled time entries on a new invoice.
func (s *Service) CreateInvoice(ctx context.Context, d invoicing.Draft) (model.Invoice, error) {
	var inv model.Invoice
	err := s.mutate(ctx, func(ws *model.WorkingSet) error {
		var err error
		inv, err = invoicing.Creator{Now: s.clock.Now, NewID: s.newID}.Create(ws, d)
		return err
	})
	return inv, err
}

// Replicas lists stored replicas, most recent first.
func (s *Service) Replicas(ctx context.Context) ([]replica.Entry, error) {
	return s.replicas.ListReplicas(ctx)
}

// PruneReplicas keeps the keep most recent replicas.
func (s *Service) PruneReplicas(ctx context.Context, keep int) (int, error) {
	return s.replicas.Prune(ctx, keep)
}

// LastBackup returns the metadata of the most recent replica write.
func (s *Service) LastBackup(ctx context.Context) (model.BackupMetadata, bool) {
	return store.LastBackup(ctx, s.primary)
}

func (s *Service) book() ledger.Book {
	return ledger.Book{Now: s.clock.Now, NewID: s.newID}
}

func isEmpty(ws model.WorkingSet) bool {
	for _, n := range ws.Counts() {
		if n > 0 {
			return false
		}
	}
	return ws.BillerInfo.IsBlank()
}
