package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tallykeep_sync_runs_total",
		Help: "Sync runs by action taken and terminal state",
	}, []string{"action", "state"})

	syncDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tallykeep_sync_duration_seconds",
		Help:    "Time to complete a sync run",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"state"})

	lastSuccessGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tallykeep_sync_last_success_timestamp_ms",
		Help: "Time of the last successful sync in ms since epoch",
	})

	autoBackupSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tallykeep_autobackup_skipped_total",
		Help: "Auto-backup ticks skipped because a sync was already running",
	})
)
