// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for the patterns used by the dispatcher and the queue drain.
//
// Key features:
//   - JSON and text output formats
//   - Drain run ID propagation
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "notice-dispatch/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started", slog.String("schedule", "* * * * *"))
//	}
//
//	func drain(ctx context.Context) {
//	    ctx = logging.ContextWithRunID(ctx, uuid.NewString())
//	    logging.WithRunID(ctx, slog.Default()).Info("draining")
//	}
package logging
