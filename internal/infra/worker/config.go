package worker

import (
	"fmt"
	"log/slog"
	"time"

	"notice-dispatch/internal/pkg/config"
)

// WorkerConfig controls the scheduled queue drain.
type WorkerConfig struct {
	// DrainSchedule is a five-field cron expression or descriptor.
	DrainSchedule string
	// Timezone is the IANA zone the schedule is evaluated in.
	Timezone string
	// LockWait is how long a run waits for the drain lock. Negative means
	// give up immediately when another run holds it.
	LockWait time.Duration
	// RunTimeout bounds a single drain run.
	RunTimeout  time.Duration
	HealthPort  int
	MetricsPort int
}

// DefaultConfig drains every minute in UTC without waiting for the lock.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		DrainSchedule: "* * * * *",
		Timezone:      "UTC",
		LockWait:      -1,
		RunTimeout:    10 * time.Minute,
		HealthPort:    9091,
		MetricsPort:   9090,
	}
}

// Validate reports every invalid field at once.
func (c *WorkerConfig) Validate() error {
	var errs []error
	if err := config.ValidateCronSchedule(c.DrainSchedule); err != nil {
		errs = append(errs, fmt.Errorf("drain schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.RunTimeout, time.Second, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health port and metrics port must differ"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// fallbackRecorder logs and counts one fallback per invalid variable.
type fallbackRecorder struct {
	logger  *slog.Logger
	metrics *WorkerMetrics
	applied bool
}

func (r *fallbackRecorder) note(field string, applied bool, warnings []string) {
	if !applied {
		return
	}
	r.applied = true
	r.metrics.RecordFallback(field)
	for _, w := range warnings {
		r.logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", w))
	}
}

// LoadConfigFromEnv reads the worker settings. Invalid values fall back to
// their defaults with a warning; the returned config is always usable.
//
// Environment variables:
//   - DRAIN_SCHEDULE (default "* * * * *")
//   - WORKER_TIMEZONE (default "UTC")
//   - NOTIFICATION_LOCK_WAIT (default -1s, no waiting)
//   - DRAIN_TIMEOUT (default 10m)
//   - WORKER_HEALTH_PORT (default 9091)
//   - METRICS_PORT (default 9090)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	rec := &fallbackRecorder{logger: logger, metrics: metrics}

	schedule := config.LoadEnvWithFallback("DRAIN_SCHEDULE", cfg.DrainSchedule, config.ValidateCronSchedule)
	cfg.DrainSchedule = schedule.Value
	rec.note("drain_schedule", schedule.FallbackApplied, schedule.Warnings)

	tz := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	rec.note("timezone", tz.FallbackApplied, tz.Warnings)

	wait := config.LoadEnvDuration("NOTIFICATION_LOCK_WAIT", cfg.LockWait, nil)
	cfg.LockWait = wait.Value
	rec.note("lock_wait", wait.FallbackApplied, wait.Warnings)

	timeout := config.LoadEnvDuration("DRAIN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 4*time.Hour)
	})
	cfg.RunTimeout = timeout.Value
	rec.note("drain_timeout", timeout.FallbackApplied, timeout.Warnings)

	port := func(v int) error { return config.ValidateIntRange(v, 1024, 65535) }
	health := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, port)
	cfg.HealthPort = health.Value
	rec.note("health_port", health.FallbackApplied, health.Warnings)

	mport := config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, port)
	cfg.MetricsPort = mport.Value
	rec.note("metrics_port", mport.FallbackApplied, mport.Warnings)

	metrics.SetFallbackActive(rec.applied)
	metrics.RecordLoadTimestamp()
	return &cfg, nil
}
