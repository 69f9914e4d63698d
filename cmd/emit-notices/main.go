// Command emit-notices drains the notice queue once and exits.
//
// It exits 0 when the drain ran, was locked out by another run, or failed
// while processing (the failure is alerted to the admins). It exits 1 only
// when startup configuration is invalid.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notice-dispatch/internal/app"
	"notice-dispatch/internal/config"
	"notice-dispatch/internal/observability/logging"
	"notice-dispatch/internal/usecase/drain"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("emit-notices", flag.ContinueOnError)
	fs.SetOutput(stderr)
	lockName := fs.String("lock-name", drain.DefaultLockName, "name of the cross-process drain lock")
	lockWait := fs.Duration("lock-wait", -1, "how long to wait for the lock; negative gives up immediately")
	configPath := fs.String("config", os.Getenv("NOTIFICATION_CONFIG"), "path to the notification YAML file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	cfg, warnings, err := config.Load(*configPath)
	for _, w := range warnings {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}
	if err != nil {
		fmt.Fprintf(stderr, "emit-notices: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "emit-notices: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close resources", slog.Any("error", err))
		}
	}()

	res := a.Engine(drain.Config{LockName: *lockName, LockWaitTimeout: *lockWait}).Run(ctx)
	switch res.State {
	case drain.StateLockedOut:
		logger.Info("another drain holds the lock; nothing to do", slog.String("lock", *lockName))
	case drain.StateFailed:
		logger.Warn("drain failed; see the alert for details",
			slog.String("run_id", res.Stats.RunID),
			slog.Any("error", res.Err))
	default:
		logger.Info("drain finished",
			slog.String("run_id", res.Stats.RunID),
			slog.Int("batches", res.Stats.Batches),
			slog.Int("sent", res.Stats.SentActual),
			slog.Duration("elapsed", res.Stats.Elapsed.Round(time.Millisecond)))
	}
	return 0
}
