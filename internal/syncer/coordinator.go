package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/tallykeep/internal/checksum"
	"github.com/roach88/tallykeep/internal/logger"
	"github.com/roach88/tallykeep/internal/model"
	"github.com/roach88/tallykeep/internal/replica"
	"github.com/roach88/tallykeep/internal/snapshot"
	"github.com/roach88/tallykeep/internal/store"
)

// State is the coordinator's observable sync state.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Action is what a sync run did.
type Action string

const (
	ActionCreated Action = "created"
	ActionPulled  Action = "pulled"
	ActionPushed  Action = "pushed"
	ActionNone    Action = "none"
)

var (
	ErrRecordSync   = errors.New("syncer: record sync time failed")
	ErrRecordBackup = errors.New("syncer: record backup metadata failed")
)

// Outcome reports a finished sync run.
type Outcome struct {
	State  State
	Action Action

	// Data is the replica snapshot to adopt. Set only for ActionPulled.
	Data *model.Snapshot

	// ReplicaKey is the key written by ActionCreated or ActionPushed.
	ReplicaKey string

	// SyncedAt is the recorded sync time in ms, zero for ActionNone.
	SyncedAt int64

	Err error
}

// Options configures a Coordinator.
type Options struct {
	// Retention is how many replicas to keep after each write. 0 keeps all.
	Retention int

	// Clock stamps sync times. Defaults to snapshot.SystemClock.
	Clock snapshot.Clock

	// Logger defaults to the "syncer" component logger.
	Logger *zerolog.Logger
}

// Coordinator runs syncs between the primary store and the replica tier.
//
// Thread-safety: State may be called concurrently with Sync. Sync itself
// does not prevent overlap; TrySync claims the run atomically and is what
// auto-backup and the application service use.
type Coordinator struct {
	primary   store.KV
	replicas  *replica.Store
	clock     snapshot.Clock
	retention int
	log       zerolog.Logger

	mu      sync.Mutex
	state   State
	running atomic.Bool
}

// New creates a coordinator that records bookkeeping in primary and
// replicas in replicas.
func New(primary store.KV, replicas *replica.Store, opts Options) *Coordinator {
	c := &Coordinator{
		primary:   primary,
		replicas:  replicas,
		clock:     opts.Clock,
		retention: opts.Retention,
		state:     StateIdle,
	}
	if c.clock == nil {
		c.clock = snapshot.SystemClock
	}
	if opts.Logger != nil {
		c.log = *opts.Logger
	} else {
		c.log = logger.WithComponent("syncer")
	}
	return c
}

// State returns the current sync state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// TrySync runs Sync unless another TrySync is still running, in which case
// it returns false without touching either store.
func (c *Coordinator) TrySync(ctx context.Context, current model.Snapshot) (Outcome, bool) {
	if !c.running.CompareAndSwap(false, true) {
		return Outcome{}, false
	}
	defer c.running.Store(false)
	return c.Sync(ctx, current), true
}

// Sync reconciles current with the newest replica. See the package
// documentation for the decision table.
func (c *Coordinator) Sync(ctx context.Context, current model.Snapshot) (out Outcome) {
	start := time.Now()
	c.setState(StateSyncing)

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{State: StateError, Err: fmt.Errorf("sync panicked: %v", r)}
		}
		if out.Err != nil {
			out.State = StateError
			c.log.Error().Err(out.Err).Str("action", string(out.Action)).Msg("sync failed")
		} else {
			out.State = StateSuccess
			if out.SyncedAt != 0 {
				lastSuccessGauge.Set(float64(out.SyncedAt))
			}
			c.log.Info().
				Str("action", string(out.Action)).
				Str("replica", out.ReplicaKey).
				Int64("lastModified", current.LastModified).
				Msg("sync complete")
		}
		c.setState(out.State)
		syncRunsTotal.WithLabelValues(string(out.Action), string(out.State)).Inc()
		syncDurationHistogram.WithLabelValues(string(out.State)).Observe(time.Since(start).Seconds())
	}()

	latest, found, err := c.replicas.Latest(ctx)
	if err != nil {
		return Outcome{Err: fmt.Errorf("load latest replica: %w", err)}
	}

	switch {
	case !found:
		return c.persist(ctx, current, ActionCreated)

	case latest.LastModified > current.LastModified:
		now := c.clock.Now().UnixMilli()
		if !store.RecordSync(ctx, c.primary, now) {
			return Outcome{Action: ActionPulled, Err: ErrRecordSync}
		}
		return Outcome{Action: ActionPulled, Data: &latest, SyncedAt: now}

	case current.LastModified > store.LastSync(ctx, c.primary):
		return c.persist(ctx, current, ActionPushed)

	default:
		return Outcome{Action: ActionNone}
	}
}

// persist writes current as a new replica, records its metadata and the
// sync time, then applies retention.
func (c *Coordinator) persist(ctx context.Context, current model.Snapshot, action Action) Outcome {
	current.Normalize()

	sum, err := checksum.Of(current)
	if err != nil {
		return Outcome{Action: action, Err: fmt.Errorf("checksum snapshot: %w", err)}
	}

	key, err := c.replicas.Write(ctx, current)
	if err != nil {
		return Outcome{Action: action, Err: err}
	}

	meta := model.BackupMetadata{Timestamp: current.LastModified, Version: current.Version, Checksum: sum}
	if !store.RecordBackup(ctx, c.primary, meta) {
		return Outcome{Action: action, ReplicaKey: key, Err: ErrRecordBackup}
	}

	now := c.clock.Now().UnixMilli()
	if !store.RecordSync(ctx, c.primary, now) {
		return Outcome{Action: action, ReplicaKey: key, Err: ErrRecordSync}
	}

	if removed, err := c.replicas.Prune(ctx, c.retention); err != nil {
		c.log.Warn().Err(err).Int("removed", removed).Msg("replica retention failed")
	}

	return Outcome{Action: action, ReplicaKey: key, SyncedAt: now}
}
