package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/infra/render"
	"notice-dispatch/internal/observability/logging"
	"notice-dispatch/internal/observability/metrics"
	"notice-dispatch/internal/observability/tracing"
	"notice-dispatch/internal/repository"
	"notice-dispatch/internal/usecase/notice"

	"go.opentelemetry.io/otel/attribute"
)

// Dispatcher sends notices immediately or defers them to the queue.
type Dispatcher struct {
	Registry *Registry
	Notices  *notice.Service
	Batches  repository.QueueBatchRepository
	Renderer Renderer
	Locales  LocaleResolver
	Site     Site
	// QueueAll makes Send queue unless the call asks for WithNow.
	QueueAll bool
	Now      func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) locale(user *entity.User) string {
	if d.Locales == nil {
		return render.DefaultLocale
	}
	return d.Locales.Resolve(user)
}

func (d *Dispatcher) noticeType(ctx context.Context, label string) (*entity.NoticeType, error) {
	nt, err := d.Notices.NoticeType(ctx, label)
	if errors.Is(err, notice.ErrNoticeTypeNotFound) {
		return nil, &NotFoundError{Label: label}
	}
	if err != nil {
		return nil, err
	}
	return nt, nil
}

// SendNow delivers label to every user through every eligible backend, in
// registry order, storing a notice per user unless WithoutNotice is given.
// It reports whether at least one delivery happened. The first transport
// failure stops the call with a *DeliveryError.
func (d *Dispatcher) SendNow(ctx context.Context, users []*entity.User, label string, extra map[string]any, opts ...Option) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "notify.SendNow",
		attribute.String("notice.label", label),
		attribute.Int("notice.recipients", len(users)))
	defer span.End()

	sent, err := d.sendNow(ctx, users, label, extra, newSendOptions(opts))
	if err != nil {
		tracing.RecordError(span, err)
	}
	span.SetAttributes(attribute.Bool("notice.sent", sent))
	return sent, err
}

func (d *Dispatcher) sendNow(ctx context.Context, users []*entity.User, label string, extra map[string]any, o sendOptions) (bool, error) {
	nt, err := d.noticeType(ctx, label)
	if err != nil {
		return false, err
	}
	logger := logging.FromContext(ctx)

	sent := false
	for _, user := range users {
		locale := d.locale(user)

		if o.issueNotice {
			data := renderData(d.siteContext(), extra, user, o.sender, nt)
			message, err := d.Renderer.Render(ctx, nt.Label, render.FormatNotice, locale, data)
			if err != nil {
				return sent, fmt.Errorf("render notice for user %d: %w", user.ID, err)
			}
			if _, err := d.Notices.Record(ctx, notice.RecordInput{
				User:       user,
				NoticeType: nt,
				Message:    message,
				Sender:     o.sender,
				OnSite:     o.onSite,
			}); err != nil {
				return sent, err
			}
		}

		for _, b := range d.Registry.Backends() {
			medium := b.Medium()
			ok, err := b.CanSend(ctx, user, nt)
			if err != nil {
				return sent, err
			}
			if !ok {
				RecordSkipped(medium.Label, "ineligible")
				continue
			}

			RecordDeliveryAttempt(medium.Label)
			start := time.Now()
			err = b.Deliver(ctx, Delivery{
				Recipient:  user,
				Sender:     o.sender,
				NoticeType: nt,
				Locale:     locale,
				Context:    renderData(b.DefaultContext(), extra, user, o.sender, nt),
			})
			if err != nil {
				RecordFailure(medium.Label, time.Since(start))
				return sent, &DeliveryError{Medium: medium.Label, UserID: user.ID, Err: err}
			}
			RecordSuccess(medium.Label, time.Since(start))
			sent = true

			logger.Debug("notice delivered",
				slog.String("medium", medium.Label),
				slog.Int64("user_id", user.ID),
				slog.String("label", nt.Label))
		}
	}
	return sent, nil
}

func (d *Dispatcher) siteContext() map[string]any {
	return map[string]any{
		"site_name": d.Site.Name,
		"domain":    d.Site.Domain,
		"base_url":  d.Site.BaseURL(),
	}
}

// Queue stores one batch holding an entry per recipient for the drain to
// process later. It creates no notices and attempts no delivery. The label
// must name a registered notice type.
func (d *Dispatcher) Queue(ctx context.Context, recipients Recipients, label string, extra map[string]any, opts ...Option) error {
	ctx, span := tracing.StartSpan(ctx, "notify.Queue", attribute.String("notice.label", label))
	defer span.End()

	if err := d.queue(ctx, recipients, label, extra, newSendOptions(opts)); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	return nil
}

func (d *Dispatcher) queue(ctx context.Context, recipients Recipients, label string, extra map[string]any, o sendOptions) error {
	if _, err := d.noticeType(ctx, label); err != nil {
		return err
	}

	ids, err := recipients.IDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		logging.FromContext(ctx).Debug("queue skipped: no recipients", slog.String("label", label))
		return nil
	}

	var senderID *int64
	if o.sender != nil {
		id := o.sender.ID
		senderID = &id
	}
	entries := make([]PayloadEntry, len(ids))
	for i, id := range ids {
		entries[i] = PayloadEntry{
			UserID:       id,
			Label:        label,
			ExtraContext: extra,
			SenderID:     senderID,
			IssueNotice:  o.issueNotice,
			OnSite:       o.onSite,
		}
	}

	payload, err := EncodePayload(entries)
	if err != nil {
		return err
	}
	batch := &entity.QueueBatch{Payload: payload, CreatedAt: d.now()}
	if err := d.Batches.Create(ctx, batch); err != nil {
		return fmt.Errorf("store queue batch: %w", err)
	}
	metrics.RecordBatchQueued(len(entries))

	logging.FromContext(ctx).Info("queued notices",
		slog.Int64("batch_id", batch.ID),
		slog.String("label", label),
		slog.Int("entries", len(entries)))
	return nil
}

// Send queues when QueueAll is set or WithQueue is given, and delivers now
// otherwise. WithNow overrides QueueAll. Giving both WithQueue and WithNow
// fails with ErrConflictingSendMode. A queued send reports false.
func (d *Dispatcher) Send(ctx context.Context, recipients Recipients, label string, extra map[string]any, opts ...Option) (bool, error) {
	o := newSendOptions(opts)
	if o.queue && o.now {
		return false, ErrConflictingSendMode
	}

	if o.queue || (d.QueueAll && !o.now) {
		return false, d.Queue(ctx, recipients, label, extra, opts...)
	}

	users, err := recipients.Users(ctx)
	if err != nil {
		return false, err
	}
	return d.SendNow(ctx, users, label, extra, opts...)
}
