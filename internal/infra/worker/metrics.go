package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"notice-dispatch/internal/pkg/config"
)

// WorkerMetrics covers configuration fallbacks and scheduled drain jobs.
// It complements the per-run drain metrics with job-level timing.
type WorkerMetrics struct {
	*config.ConfigMetrics

	CronJobRunsTotal            *prometheus.CounterVec
	CronJobDurationSeconds      prometheus.Histogram
	CronJobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics with reg, or with the
// default registerer when reg is nil.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),

		CronJobRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of scheduled drain jobs by resulting state",
		}, []string{"state"}),

		CronJobDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of scheduled drain jobs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 300, 600},
		}),

		CronJobLastSuccessTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last scheduled drain that completed",
		}),
	}
}

// RecordJob records one scheduled run. state is the drain state.
func (m *WorkerMetrics) RecordJob(state string, seconds float64) {
	m.CronJobRunsTotal.WithLabelValues(state).Inc()
	m.CronJobDurationSeconds.Observe(seconds)
}

func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronJobLastSuccessTimestamp.SetToCurrentTime()
}
