// Package alert delivers fault reports to the people who operate the
// deployment.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"notice-dispatch/internal/infra/mailer"
)

// Report describes one fault.
type Report struct {
	Subject string
	Err     string
	Stack   string
	RunID   string
	At      time.Time
	// Fields carries run context such as counters reached before the fault.
	Fields map[string]any
}

// Body renders the report as plain text.
func (r Report) Body() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", r.Err)
	if r.RunID != "" {
		fmt.Fprintf(&sb, "Run: %s\n", r.RunID)
	}
	if !r.At.IsZero() {
		fmt.Fprintf(&sb, "At: %s\n", r.At.UTC().Format(time.RFC3339))
	}
	if len(r.Fields) > 0 {
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\nContext:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, r.Fields[k])
		}
	}
	if r.Stack != "" {
		sb.WriteString("\nStack:\n")
		sb.WriteString(r.Stack)
	}
	return sb.String()
}

// MailAlerter mails reports to the configured administrators.
type MailAlerter struct {
	Mailer mailer.Sender
	Admins []string
}

// Alert sends r to every admin in a single message. With no admins
// configured the report is only logged.
func (a *MailAlerter) Alert(ctx context.Context, r Report) error {
	if len(a.Admins) == 0 {
		slog.Warn("no admins configured, alert not mailed", slog.String("subject", r.Subject))
		return nil
	}
	if err := a.Mailer.Send(ctx, mailer.Message{To: a.Admins, Subject: r.Subject, TextBody: r.Body()}); err != nil {
		return fmt.Errorf("mail alert: %w", err)
	}
	return nil
}

// LogAlerter writes reports to a logger.
type LogAlerter struct {
	Logger *slog.Logger
}

// Alert logs r at error level.
func (a *LogAlerter) Alert(ctx context.Context, r Report) error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "alert",
		slog.String("subject", r.Subject),
		slog.String("error", r.Err),
		slog.String("run_id", r.RunID),
		slog.String("stack", r.Stack))
	return nil
}
