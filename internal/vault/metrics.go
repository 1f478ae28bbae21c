package vault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_snapshots_total",
			Help: "Snapshots finished, by source and terminal status",
		},
		[]string{"source", "status"},
	)

	snapshotBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vault_snapshot_bytes",
			Help:    "Serialized payload size of completed snapshots",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	snapshotDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_snapshot_duration_seconds",
			Help:    "Time spent creating a snapshot",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	rotationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_rotations_total",
			Help: "Snapshots removed by the retention policy",
		},
	)

	staleSnapshotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_stale_snapshots_failed_total",
			Help: "Snapshots failed by the stale processing sweep",
		},
	)

	schedulerResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_scheduler_org_results_total",
			Help: "Per-organization outcomes of scheduled backup runs",
		},
		[]string{"status"},
	)
)
