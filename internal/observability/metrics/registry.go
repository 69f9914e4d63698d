package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Notice history metrics
var (
	// NoticesCreatedTotal counts notice history rows by notice type label
	NoticesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notices_created_total",
			Help: "Total number of notice records created",
		},
		[]string{"label"},
	)
)

// Queue metrics track deferred work
var (
	// QueueBatchesTotal counts batches written by Queue
	QueueBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notice_queue_batches_total",
			Help: "Total number of queue batches written",
		},
	)

	// QueueEntriesTotal counts entries written across all batches
	QueueEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notice_queue_entries_total",
			Help: "Total number of queued send entries",
		},
	)
)

// Drain metrics track queue drain runs
var (
	// DrainRunsTotal counts drain runs by final state
	DrainRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_drain_runs_total",
			Help: "Total number of queue drain runs",
		},
		[]string{"state"}, // state: done, locked-out, failed
	)

	// DrainDuration measures the elapsed time of completed drains
	DrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notice_drain_duration_seconds",
			Help:    "Duration of completed queue drain runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// DrainBatchesTotal counts batches drained and deleted
	DrainBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notice_drain_batches_total",
			Help: "Total number of queue batches drained",
		},
	)

	// DrainEntriesTotal counts drained entries by outcome
	DrainEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_drain_entries_total",
			Help: "Total number of drained queue entries",
		},
		[]string{"outcome"}, // outcome: delivered, ineligible, skipped
	)

	// DrainLastSuccessTimestamp is the unix time of the last completed drain
	DrainLastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notice_drain_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last completed queue drain",
		},
	)
)
