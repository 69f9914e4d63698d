// Command worker drains the notice queue on a cron schedule and serves
// health and Prometheus endpoints until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"notice-dispatch/internal/app"
	"notice-dispatch/internal/config"
	workerPkg "notice-dispatch/internal/infra/worker"
	"notice-dispatch/internal/observability/logging"
	"notice-dispatch/internal/usecase/drain"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Worker settings are fail-open; notification settings are not.
	workerMetrics := workerPkg.NewWorkerMetrics(nil)
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("drain_schedule", workerConfig.DrainSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("lock_wait", workerConfig.LockWait),
		slog.Duration("drain_timeout", workerConfig.RunTimeout),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	cfg, warnings, err := config.LoadFromEnv()
	for _, w := range warnings {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}
	if err != nil {
		return err
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close resources", slog.Any("error", err))
		}
	}()

	scheduler, err := workerPkg.NewScheduler(*workerConfig, workerMetrics, logger)
	if err != nil {
		return err
	}
	engine := a.Engine(drain.Config{LockWaitTimeout: workerConfig.LockWait})

	health := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)
	health.AddCheck("database", a.Ping)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreClosed(health.Start(ctx))
	})
	g.Go(func() error {
		return ignoreClosed(serveMetrics(ctx, logger, workerConfig.MetricsPort, a.Registry))
	})
	g.Go(func() error {
		return scheduler.Run(ctx, "emit_notices", func(ctx context.Context) (string, bool) {
			res := engine.Run(ctx)
			return string(res.State), res.State != drain.StateFailed
		})
	})

	health.SetReady(true)
	err = g.Wait()
	health.SetReady(false)
	return err
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
