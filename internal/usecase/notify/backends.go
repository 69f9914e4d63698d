package notify

import (
	"context"
	"fmt"
	"log/slog"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/infra/mailer"
	"notice-dispatch/internal/infra/notifier"
	"notice-dispatch/internal/infra/render"
	"notice-dispatch/internal/observability/logging"
)

// Renderer produces the text of one format for one notice type.
type Renderer interface {
	Render(ctx context.Context, label, format, locale string, data map[string]any) (string, error)
}

// LocaleResolver picks the locale a user's notices are rendered in.
type LocaleResolver interface {
	Resolve(user *entity.User) string
}

// EmailBackend mails the subject and full renders to the user's address.
type EmailBackend struct {
	BaseBackend
	mailer   mailer.Sender
	renderer Renderer
}

// NewEmailBackend is the Factory registered as "email".
func NewEmailBackend(medium Medium, deps BackendDeps) (Backend, error) {
	if deps.Mailer == nil {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("backend %q: email needs a mail transport", medium.Label)}
	}
	return &EmailBackend{
		BaseBackend: NewBaseBackend(medium, deps.Settings, deps.Site),
		mailer:      deps.Mailer,
		renderer:    deps.Renderer,
	}, nil
}

// CanSend additionally requires a parseable email address.
func (b *EmailBackend) CanSend(ctx context.Context, user *entity.User, nt *entity.NoticeType) (bool, error) {
	if user.Email == "" {
		return false, nil
	}
	if _, err := mailer.ParseAddress(user.Email); err != nil {
		logging.FromContext(ctx).Warn("skipping unusable email address",
			slog.String("medium", b.medium.Label),
			slog.Int64("user_id", user.ID),
			slog.Any("error", err))
		return false, nil
	}
	return b.BaseBackend.CanSend(ctx, user, nt)
}

// Deliver renders and sends one message.
func (b *EmailBackend) Deliver(ctx context.Context, d Delivery) error {
	subject, err := b.renderer.Render(ctx, d.NoticeType.Label, render.FormatSubject, d.Locale, d.Context)
	if err != nil {
		return err
	}
	body, err := b.renderer.Render(ctx, d.NoticeType.Label, render.FormatFull, d.Locale, d.Context)
	if err != nil {
		return err
	}
	return b.mailer.Send(ctx, mailer.Message{
		To:       []string{d.Recipient.Email},
		Subject:  subject,
		TextBody: body,
	})
}

// SlackBackend posts the short and full renders, mentioning the user.
type SlackBackend struct {
	BaseBackend
	notifier notifier.Notifier
	renderer Renderer
}

// NewSlackBackend is the Factory registered as "slack".
func NewSlackBackend(medium Medium, deps BackendDeps) (Backend, error) {
	if deps.Slack == nil {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("backend %q: slack needs a webhook notifier", medium.Label)}
	}
	return &SlackBackend{
		BaseBackend: NewBaseBackend(medium, deps.Settings, deps.Site),
		notifier:    deps.Slack,
		renderer:    deps.Renderer,
	}, nil
}

// CanSend additionally requires a linked Slack account.
func (b *SlackBackend) CanSend(ctx context.Context, user *entity.User, nt *entity.NoticeType) (bool, error) {
	if user.SlackUserID == "" {
		return false, nil
	}
	return b.BaseBackend.CanSend(ctx, user, nt)
}

// Deliver renders and posts one message.
func (b *SlackBackend) Deliver(ctx context.Context, d Delivery) error {
	title, err := b.renderer.Render(ctx, d.NoticeType.Label, render.FormatShort, d.Locale, d.Context)
	if err != nil {
		return err
	}
	body, err := b.renderer.Render(ctx, d.NoticeType.Label, render.FormatFull, d.Locale, d.Context)
	if err != nil {
		return err
	}
	footer := d.NoticeType.Display
	if b.site.Name != "" {
		footer = b.site.Name + " • " + footer
	}
	return b.notifier.Notify(ctx, notifier.Message{
		Mention: d.Recipient.SlackUserID,
		Title:   title,
		Body:    body,
		Footer:  footer,
		Source:  b.medium.Label,
	})
}

// LogBackend writes deliveries to the structured log.
type LogBackend struct {
	BaseBackend
	logger   *slog.Logger
	renderer Renderer
}

// NewLogBackend is the Factory registered as "log".
func NewLogBackend(medium Medium, deps BackendDeps) (Backend, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LogBackend{
		BaseBackend: NewBaseBackend(medium, deps.Settings, deps.Site),
		logger:      logger,
		renderer:    deps.Renderer,
	}, nil
}

// Deliver logs the short render.
func (b *LogBackend) Deliver(ctx context.Context, d Delivery) error {
	short, err := b.renderer.Render(ctx, d.NoticeType.Label, render.FormatShort, d.Locale, d.Context)
	if err != nil {
		return err
	}
	attrs := []any{
		slog.String("medium", b.medium.Label),
		slog.Int64("user_id", d.Recipient.ID),
		slog.String("label", d.NoticeType.Label),
		slog.String("locale", d.Locale),
		slog.String("message", short),
	}
	if d.Sender != nil {
		attrs = append(attrs, slog.Int64("sender_id", d.Sender.ID))
	}
	b.logger.InfoContext(ctx, "notice delivered", attrs...)
	return nil
}
