package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc runs one scheduled job and reports its resulting state. ok is
// false when the run ended in a failure.
type JobFunc func(ctx context.Context) (state string, ok bool)

// Scheduler runs a job on the configured cron schedule. Overlapping ticks
// are skipped while a previous run is still in progress.
type Scheduler struct {
	cfg     WorkerConfig
	metrics *WorkerMetrics
	logger  *slog.Logger
	cron    *cron.Cron
	now     func() time.Time
}

// NewScheduler validates the schedule and timezone up front.
func NewScheduler(cfg WorkerConfig, metrics *WorkerMetrics, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	cl := cronLogger{logger: logger}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cfg: cfg, metrics: metrics, logger: logger, cron: c, now: time.Now}, nil
}

// Run schedules job and blocks until ctx is canceled. It waits for a run in
// progress to finish before returning.
func (s *Scheduler) Run(ctx context.Context, name string, job JobFunc) error {
	if _, err := s.cron.AddFunc(s.cfg.DrainSchedule, func() { s.RunOnce(ctx, name, job) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info("scheduler started",
		slog.String("job", name),
		slog.String("schedule", s.cfg.DrainSchedule),
		slog.String("timezone", s.cfg.Timezone))
	s.cron.Start()

	<-ctx.Done()
	s.logger.Info("scheduler stopping; waiting for running job")
	<-s.cron.Stop().Done()
	return nil
}

// RunOnce executes job under the configured timeout and records metrics.
func (s *Scheduler) RunOnce(ctx context.Context, name string, job JobFunc) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	start := s.now()
	state, ok := job(runCtx)
	elapsed := s.now().Sub(start)

	s.metrics.RecordJob(state, elapsed.Seconds())
	if ok {
		s.metrics.RecordLastSuccess()
	}
	s.logger.Info("scheduled job finished",
		slog.String("job", name),
		slog.String("state", state),
		slog.Duration("duration", elapsed))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.Any("error", err)}, keysAndValues...)...)
}
