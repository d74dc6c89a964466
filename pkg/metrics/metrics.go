package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncCycles records reconciliation cycles by source (feed|external) and result (success|failure).
	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusflow_sync_cycles_total",
			Help: "Total number of reconciliation cycles",
		},
		[]string{"source", "result"},
	)

	// RecordsReconciled counts records touched during sync by action (added|updated|removed).
	RecordsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusflow_records_reconciled_total",
			Help: "Total number of records added, updated, or removed by sync",
		},
		[]string{"source", "action"},
	)

	// RemindersFired counts reminder announcements synthesized by the sweeper.
	RemindersFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campusflow_reminders_fired_total",
			Help: "Total number of due-date reminders synthesized",
		},
	)

	// AlertsPruned counts alerts dropped by the retention policy.
	AlertsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campusflow_alerts_pruned_total",
			Help: "Total number of alerts removed by retention pruning",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusflow_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
