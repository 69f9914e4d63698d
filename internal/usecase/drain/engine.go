// Package drain processes the notice queue: one run takes the drain lock,
// delivers every stored batch and deletes each batch once all its entries
// were handled.
package drain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/infra/alert"
	"notice-dispatch/internal/infra/lock"
	"notice-dispatch/internal/observability/logging"
	"notice-dispatch/internal/observability/metrics"
	"notice-dispatch/internal/observability/tracing"
	"notice-dispatch/internal/repository"
	"notice-dispatch/internal/usecase/notify"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultLockName is the lock every drain process contends for.
const DefaultLockName = "send_notices"

// State is the outcome of one run.
type State string

const (
	StateLockedOut State = "locked-out"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Config controls one engine.
type Config struct {
	LockName string
	// LockWaitTimeout <= 0 gives up at once when another run holds the lock.
	LockWaitTimeout time.Duration
	// SiteName prefixes alert subjects.
	SiteName string
}

// DefaultConfig returns a non-blocking configuration on DefaultLockName.
func DefaultConfig() Config {
	return Config{LockName: DefaultLockName, LockWaitTimeout: -1}
}

// Stats are the counters of one run. Sent counts every handled entry,
// SentActual the entries that produced at least one delivery and Skipped
// the entries whose user no longer exists.
type Stats struct {
	RunID      string
	Batches    int
	Sent       int
	SentActual int
	Skipped    int
	Elapsed    time.Duration
}

// Result is returned by Run. Err is set for StateFailed only.
type Result struct {
	State State
	Stats Stats
	Err   error
}

// Sender delivers one queued entry. *notify.Dispatcher implements it.
type Sender interface {
	SendNow(ctx context.Context, users []*entity.User, label string, extra map[string]any, opts ...notify.Option) (bool, error)
}

// Alerter receives fault reports.
type Alerter interface {
	Alert(ctx context.Context, r alert.Report) error
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Locks    lock.Provider
	Batches  repository.QueueBatchRepository
	Users    repository.UserRepository
	Sender   Sender
	Alerter  Alerter
	Observer Observer
	Logger   *slog.Logger
	Now      func() time.Time
}

// Engine runs queue drains. It is safe to call Run repeatedly; concurrent
// runs are serialized by the lock.
type Engine struct {
	cfg  Config
	deps Deps
}

// NewEngine fills unset config fields with their defaults.
func NewEngine(cfg Config, deps Deps) *Engine {
	if cfg.LockName == "" {
		cfg.LockName = DefaultLockName
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Alerter == nil {
		deps.Alerter = &alert.LogAlerter{Logger: deps.Logger}
	}
	if deps.Observer == nil {
		deps.Observer = Observers{}
	}
	return &Engine{cfg: cfg, deps: deps}
}

// Run performs one drain. It never panics and never returns an error to
// the caller: faults are logged, alerted and reported in the Result.
func (e *Engine) Run(ctx context.Context) Result {
	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.WithRunID(ctx, e.deps.Logger).With(slog.String("lock", e.cfg.LockName))
	ctx = logging.WithLogger(ctx, logger)

	ctx, span := tracing.StartSpan(ctx, "drain.Run", attribute.String("drain.run_id", runID))
	defer span.End()

	start := e.deps.Now()
	stats := Stats{RunID: runID}

	held, err := e.deps.Locks.Acquire(ctx, e.cfg.LockName, e.cfg.LockWaitTimeout)
	if errors.Is(err, lock.ErrAlreadyLocked) || errors.Is(err, lock.ErrLockTimeout) {
		stats.Elapsed = e.deps.Now().Sub(start)
		logger.Info("drain skipped, another run holds the lock", slog.Any("reason", err))
		metrics.RecordDrainRun(string(StateLockedOut))
		span.SetAttributes(attribute.String("drain.state", string(StateLockedOut)))
		return Result{State: StateLockedOut, Stats: stats}
	}
	if err != nil {
		stats.Elapsed = e.deps.Now().Sub(start)
		err = fmt.Errorf("acquire lock: %w", err)
		e.fault(ctx, logger, err, debug.Stack(), stats)
		tracing.RecordError(span, err)
		return Result{State: StateFailed, Stats: stats, Err: err}
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Error("release drain lock", slog.Any("error", err))
		}
	}()

	logger.Debug("drain lock acquired")

	stack, err := e.drainSafely(ctx, &stats)
	stats.Elapsed = e.deps.Now().Sub(start)
	if err != nil {
		e.fault(ctx, logger, err, stack, stats)
		tracing.RecordError(span, err)
		span.SetAttributes(attribute.String("drain.state", string(StateFailed)))
		return Result{State: StateFailed, Stats: stats, Err: err}
	}

	e.deps.Observer.DrainCompleted(ctx, stats)
	metrics.RecordDrainRun(string(StateDone))
	span.SetAttributes(
		attribute.String("drain.state", string(StateDone)),
		attribute.Int("drain.batches", stats.Batches),
		attribute.Int("drain.sent", stats.Sent),
		attribute.Int("drain.sent_actual", stats.SentActual))
	return Result{State: StateDone, Stats: stats}
}

// drainSafely turns a panic anywhere below into an error with its stack.
func (e *Engine) drainSafely(ctx context.Context, stats *Stats) (stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			stack = debug.Stack()
		}
	}()
	if err := e.drain(ctx, stats); err != nil {
		return debug.Stack(), err
	}
	return nil, nil
}

func (e *Engine) drain(ctx context.Context, stats *Stats) error {
	logger := logging.FromContext(ctx)

	batches, err := e.deps.Batches.List(ctx)
	if err != nil {
		return fmt.Errorf("list queue batches: %w", err)
	}

	for _, batch := range batches {
		entries, err := notify.DecodePayload(batch.Payload)
		if err != nil {
			return fmt.Errorf("batch %d: %w", batch.ID, err)
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}

			user, err := e.deps.Users.Get(ctx, entry.UserID)
			if err != nil {
				return fmt.Errorf("batch %d: load user %d: %w", batch.ID, entry.UserID, err)
			}
			if user == nil {
				logger.Warn("queued recipient no longer exists, skipping",
					slog.Int64("batch_id", batch.ID),
					slog.Int64("user_id", entry.UserID),
					slog.String("label", entry.Label))
				stats.Skipped++
				stats.Sent++
				continue
			}

			var sender *entity.User
			if entry.SenderID != nil {
				sender, err = e.deps.Users.Get(ctx, *entry.SenderID)
				if err != nil {
					return fmt.Errorf("batch %d: load sender %d: %w", batch.ID, *entry.SenderID, err)
				}
				if sender == nil {
					logger.Warn("queued sender no longer exists, sending without one",
						slog.Int64("batch_id", batch.ID),
						slog.Int64("sender_id", *entry.SenderID))
				}
			}

			ok, err := e.deps.Sender.SendNow(ctx, []*entity.User{user}, entry.Label, entry.ExtraContext, entry.Options(sender)...)
			if err != nil {
				return fmt.Errorf("batch %d: user %d: %w", batch.ID, entry.UserID, err)
			}
			stats.Sent++
			if ok {
				stats.SentActual++
			}
		}

		if err := e.deps.Batches.Delete(ctx, batch.ID); err != nil {
			return fmt.Errorf("delete batch %d: %w", batch.ID, err)
		}
		stats.Batches++
		logger.Debug("queue batch drained",
			slog.Int64("batch_id", batch.ID),
			slog.Int("entries", len(entries)))
	}
	return nil
}

// fault logs and alerts. A canceled run is logged only.
func (e *Engine) fault(ctx context.Context, logger *slog.Logger, err error, stack []byte, stats Stats) {
	metrics.RecordDrainRun(string(StateFailed))

	if errors.Is(err, context.Canceled) {
		logger.Warn("drain canceled", slog.Any("error", err), slog.Int("batches", stats.Batches))
		return
	}

	logger.Error("drain aborted",
		slog.String("severity", "critical"),
		slog.Any("error", err),
		slog.Int("batches", stats.Batches),
		slog.Int("sent", stats.Sent),
		slog.Int("sent_actual", stats.SentActual),
		slog.String("stack", string(stack)))

	site := e.cfg.SiteName
	if site == "" {
		site = "notice-dispatch"
	}
	report := alert.Report{
		Subject: fmt.Sprintf("[%s emit_notices] %v", site, err),
		Err:     err.Error(),
		Stack:   string(stack),
		RunID:   stats.RunID,
		At:      e.deps.Now(),
		Fields: map[string]any{
			"lock":        e.cfg.LockName,
			"batches":     stats.Batches,
			"sent":        stats.Sent,
			"sent_actual": stats.SentActual,
			"skipped":     stats.Skipped,
		},
	}
	if aerr := e.deps.Alerter.Alert(context.WithoutCancel(ctx), report); aerr != nil {
		logger.Error("send drain alert", slog.Any("error", aerr))
	}
}
