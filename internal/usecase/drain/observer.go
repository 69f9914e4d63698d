package drain

import (
	"context"
	"log/slog"
	"time"

	"notice-dispatch/internal/observability/logging"
	"notice-dispatch/internal/observability/metrics"
)

// Observer is told about every completed run.
type Observer interface {
	DrainCompleted(ctx context.Context, stats Stats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, stats Stats)

// DrainCompleted calls f.
func (f ObserverFunc) DrainCompleted(ctx context.Context, stats Stats) {
	f(ctx, stats)
}

// Observers fans one event out, in order.
type Observers []Observer

// DrainCompleted notifies every observer.
func (o Observers) DrainCompleted(ctx context.Context, stats Stats) {
	for _, obs := range o {
		obs.DrainCompleted(ctx, stats)
	}
}

// MetricsObserver exports run statistics to Prometheus.
type MetricsObserver struct {
	Now func() time.Time
}

// DrainCompleted records the run.
func (m MetricsObserver) DrainCompleted(_ context.Context, stats Stats) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	metrics.RecordDrainCompleted(stats.Batches, stats.Sent, stats.SentActual, stats.Skipped, stats.Elapsed, now())
}

// LogObserver logs a summary line.
type LogObserver struct{}

// DrainCompleted logs the run statistics.
func (LogObserver) DrainCompleted(ctx context.Context, stats Stats) {
	logging.FromContext(ctx).Info("drain completed",
		slog.Int("batches", stats.Batches),
		slog.Int("sent", stats.Sent),
		slog.Int("sent_actual", stats.SentActual),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("elapsed", stats.Elapsed))
}
