// Package replica keeps timestamped snapshot copies in the secondary tier.
//
// Every replica lives under its own key, cloud_backup_<lastModified>, so
// writing a new one never overwrites an older one. Retention is applied
// separately through Prune.
package replica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/roach88/tallykeep/internal/integrity"
	"github.com/roach88/tallykeep/internal/logger"
	"github.com/roach88/tallykeep/internal/model"
	"github.com/roach88/tallykeep/internal/store"
)

// KeyPrefix prefixes every replica key.
const KeyPrefix = "cloud_backup_"

var (
	replicaOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tallykeep_replica_operations_total",
		Help: "Replica store operations by operation and status",
	}, []string{"operation", "status"})

	replicasPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tallykeep_replicas_pruned_total",
		Help: "Replicas deleted by retention",
	})
)

// Entry identifies one stored replica.
type Entry struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
}

// Store reads and writes snapshot replicas on a KV.
type Store struct {
	kv  store.KV
	log zerolog.Logger
}

// New creates a replica store on kv.
func New(kv store.KV) *Store {
	return &Store{kv: kv, log: logger.WithComponent("replica")}
}

// Key returns the replica key for a snapshot timestamp.
func Key(lastModified int64) string {
	return KeyPrefix + strconv.FormatInt(lastModified, 10)
}

// Write stores snap under its timestamped key and returns the key.
func (s *Store) Write(ctx context.Context, snap model.Snapshot) (string, error) {
	key := Key(snap.LastModified)

	snap.Normalize()
	raw, err := json.Marshal(snap)
	if err != nil {
		replicaOperationsTotal.WithLabelValues("write", "error").Inc()
		return "", fmt.Errorf("replica write: encode: %w", err)
	}
	if err := s.kv.Put(ctx, key, raw); err != nil {
		replicaOperationsTotal.WithLabelValues("write", "error").Inc()
		return "", fmt.Errorf("replica write: %w", err)
	}

	replicaOperationsTotal.WithLabelValues("write", "success").Inc()
	s.log.Debug().Str("key", key).Int("bytes", len(raw)).Msg("replica written")
	return key, nil
}

// Read returns the replica stored under key.
//
// ok is false when the key is missing, or when the stored value does not
// decode or fails the snapshot shape check. Such failures are logged.
func (s *Store) Read(ctx context.Context, key string) (model.Snapshot, bool) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("replica read failed")
		}
		replicaOperationsTotal.WithLabelValues("read", "miss").Inc()
		return model.Snapshot{}, false
	}

	if err := integrity.CheckShape(raw); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("replica failed validation, skipping")
		replicaOperationsTotal.WithLabelValues("read", "invalid").Inc()
		return model.Snapshot{}, false
	}

	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("replica is corrupted, skipping")
		replicaOperationsTotal.WithLabelValues("read", "invalid").Inc()
		return model.Snapshot{}, false
	}
	snap.Normalize()

	replicaOperationsTotal.WithLabelValues("read", "success").Inc()
	return snap, true
}

// ListReplicas returns every replica, most recent first.
//
// Keys whose suffix is not a timestamp are ignored. Ordering is numeric, so
// replicas from before and after a change in timestamp width sort correctly.
func (s *Store) ListReplicas(ctx context.Context) ([]Entry, error) {
	keys, err := s.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list replicas: %w", err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		ts, err := strconv.ParseInt(strings.TrimPrefix(key, KeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Key: key, Timestamp: ts})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

// Latest returns the most recent replica that decodes and validates.
//
// Unusable replicas are skipped with a warning so one corrupted write does
// not hide older good copies. ok is false when no usable replica exists.
func (s *Store) Latest(ctx context.Context) (model.Snapshot, bool, error) {
	entries, err := s.ListReplicas(ctx)
	if err != nil {
		return model.Snapshot{}, false, err
	}

	for _, e := range entries {
		if snap, found := s.Read(ctx, e.Key); found {
			return snap, true, nil
		}
	}
	return model.Snapshot{}, false, nil
}

// Prune deletes all but the keep most recent replicas and returns how many
// were removed. keep <= 0 disables pruning.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	entries, err := s.ListReplicas(ctx)
	if err != nil {
		return 0, err
	}
	if len(entries) <= keep {
		return 0, nil
	}

	removed := 0
	for _, e := range entries[keep:] {
		if err := s.kv.Delete(ctx, e.Key); err != nil {
			replicaOperationsTotal.WithLabelValues("prune", "error").Inc()
			return removed, fmt.Errorf("prune %s: %w", e.Key, err)
		}
		removed++
	}

	replicasPrunedTotal.Add(float64(removed))
	replicaOperationsTotal.WithLabelValues("prune", "success").Inc()
	s.log.Info().Int("removed", removed).Int("kept", keep).Msg("replicas pruned")
	return removed, nil
}
