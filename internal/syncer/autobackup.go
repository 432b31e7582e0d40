package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/tallykeep/internal/model"
)

// Source supplies the snapshot to sync on each auto-backup tick.
type Source interface {
	Snapshot() model.Snapshot
}

// SourceFunc adapts a function to Source.
type SourceFunc func() model.Snapshot

// Snapshot implements Source.
func (f SourceFunc) Snapshot() model.Snapshot { return f() }

// Puller is implemented by sources that adopt replica data when a tick
// pulls a newer snapshot.
type Puller interface {
	ApplyPulled(model.Snapshot)
}

// AutoBackup is a running periodic sync. The owner must call Stop.
type AutoBackup struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	runs   atomic.Int64
}

// StartAutoBackup syncs source's snapshot every interval until ctx is
// cancelled or Stop is called. A tick is skipped while another sync is
// still running.
func (c *Coordinator) StartAutoBackup(ctx context.Context, interval time.Duration, source Source) *AutoBackup {
	ctx, cancel := context.WithCancel(ctx)
	ab := &AutoBackup{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(ab.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				out, ran := c.TrySync(ctx, source.Snapshot())
				if !ran {
					autoBackupSkippedTotal.Inc()
					c.log.Debug().Msg("auto-backup tick skipped, sync in progress")
					continue
				}
				ab.runs.Add(1)
				if out.Action == ActionPulled && out.Data != nil {
					if p, ok := source.(Puller); ok {
						p.ApplyPulled(*out.Data)
					}
				}
			}
		}
	}()

	c.log.Info().Dur("interval", interval).Msg("auto-backup started")
	return ab
}

// Stop ends the auto-backup and waits for an in-flight sync to finish.
// Safe to call more than once.
func (ab *AutoBackup) Stop() {
	ab.once.Do(func() {
		ab.cancel()
		<-ab.done
	})
}

// Runs returns how many syncs the auto-backup has completed.
func (ab *AutoBackup) Runs() int64 {
	return ab.runs.Load()
}
