package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"notice-dispatch/internal/resilience/retry"
)

// ErrHostPortRequired is returned when Host or Port are missing.
var ErrHostPortRequired = errors.New("smtp host and port are required")

// SMTPConfig configures the SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender when Message.From is empty.
	From string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP is a Sender backed by net/smtp. Transient 4xx replies are retried.
type SMTP struct {
	addr        string
	defaultFrom string
	auth        smtp.Auth
	send        SendFunc
	retry       retry.Config
	now         func() time.Time
}

// Option customizes an SMTP transport.
type Option func(*SMTP)

// WithSendFunc replaces smtp.SendMail, mainly for tests.
func WithSendFunc(fn SendFunc) Option {
	return func(s *SMTP) { s.send = fn }
}

// WithRetry replaces retry.SMTPConfig.
func WithRetry(cfg retry.Config) Option {
	return func(s *SMTP) { s.retry = cfg }
}

// NewSMTP constructs an SMTP sender.
func NewSMTP(cfg SMTPConfig, opts ...Option) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrHostPortRequired
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	s := &SMTP{
		addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		defaultFrom: cfg.From,
		auth:        auth,
		send:        smtp.SendMail,
		retry:       retry.SMTPConfig(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send composes msg and hands it to the relay.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := msg.From
	if from == "" {
		from = s.defaultFrom
	}
	raw, err := Compose(msg, from, s.now())
	if err != nil {
		return err
	}
	envelopeFrom, err := addresses([]string{from})
	if err != nil {
		return err
	}
	rcpts, err := addresses(msg.To)
	if err != nil {
		return err
	}

	err = retry.WithBackoff(ctx, s.retry, func() error {
		return s.send(s.addr, s.auth, envelopeFrom[0], rcpts, raw)
	})
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	slog.Debug("mail sent", slog.Int("recipients", len(rcpts)), slog.String("subject", msg.Subject))
	return nil
}
