package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"testing"
	"time"

	"notice-dispatch/internal/resilience/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	raw, err := Compose(Message{
		To:       []string{"Alice <alice@example.com>"},
		Subject:  "New reply",
		TextBody: "bob replied to your post",
	}, "Notices <noreply@example.com>", now)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "New reply", parsed.Header.Get("Subject"))
	assert.Contains(t, parsed.Header.Get("From"), "noreply@example.com")
	assert.Contains(t, parsed.Header.Get("To"), "alice@example.com")
	assert.Contains(t, parsed.Header.Get("Content-Type"), "text/plain")
	assert.NotEmpty(t, parsed.Header.Get("Message-Id"))

	date, err := parsed.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(now))

	body, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bob replied to your post")
}

func TestCompose_Errors(t *testing.T) {
	_, err := Compose(Message{Subject: "x"}, "a@example.com", time.Now())
	assert.ErrorIs(t, err, ErrNoRecipients)

	_, err = Compose(Message{To: []string{"a@example.com"}}, "", time.Now())
	assert.ErrorIs(t, err, ErrNoSender)

	_, err = Compose(Message{To: []string{"not an address"}}, "a@example.com", time.Now())
	assert.Error(t, err)
}

func TestNewSMTP_RequiresHostPort(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{Host: "localhost"})
	assert.ErrorIs(t, err, ErrHostPortRequired)
}

type capturedSend struct {
	calls int
	addr  string
	from  string
	to    []string
	msg   []byte
	errs  []error
}

func (c *capturedSend) send(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
	c.calls++
	c.addr, c.from, c.to, c.msg = addr, from, to, msg
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return err
	}
	return nil
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestSMTP_Send(t *testing.T) {
	rec := &capturedSend{}
	s, err := NewSMTP(SMTPConfig{Host: "mail.local", Port: 2525, From: "Notices <noreply@example.com>"},
		WithSendFunc(rec.send), WithRetry(fastRetry()))
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{To: []string{"Alice <alice@example.com>"}, Subject: "hi", TextBody: "body"})
	require.NoError(t, err)

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "mail.local:2525", rec.addr)
	assert.Equal(t, "noreply@example.com", rec.from)
	assert.Equal(t, []string{"alice@example.com"}, rec.to)
	assert.Contains(t, string(rec.msg), "Subject: hi")
}

func TestSMTP_Send_RetriesTransientReplies(t *testing.T) {
	rec := &capturedSend{errs: []error{&textproto.Error{Code: 451, Msg: "try again later"}}}
	s, err := NewSMTP(SMTPConfig{Host: "mail.local", Port: 25, From: "noreply@example.com"},
		WithSendFunc(rec.send), WithRetry(fastRetry()))
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"}))
	assert.Equal(t, 2, rec.calls)
}

func TestSMTP_Send_PermanentRejection(t *testing.T) {
	rejected := &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	rec := &capturedSend{errs: []error{rejected}}
	s, err := NewSMTP(SMTPConfig{Host: "mail.local", Port: 25, From: "noreply@example.com"},
		WithSendFunc(rec.send), WithRetry(fastRetry()))
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"})
	var tpErr *textproto.Error
	require.True(t, errors.As(err, &tpErr))
	assert.Equal(t, 550, tpErr.Code)
	assert.Equal(t, 1, rec.calls)
}

func TestSMTP_Send_CanceledContext(t *testing.T) {
	rec := &capturedSend{}
	s, err := NewSMTP(SMTPConfig{Host: "mail.local", Port: 25, From: "noreply@example.com"}, WithSendFunc(rec.send))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: []string{"a@example.com"}}), context.Canceled)
	assert.Zero(t, rec.calls)
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("Alice <alice@example.com>")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", a.Address)

	_, err = ParseAddress("not an address")
	assert.ErrorContains(t, err, `"not an address"`)
}
