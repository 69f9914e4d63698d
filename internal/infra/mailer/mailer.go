// Package mailer composes MIME messages and sends them over SMTP.
//
// Callers work with Message and the Sender interface; SMTP is the only
// transport. Composition uses github.com/emersion/go-message so headers are
// encoded and a Message-ID is generated for every send.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"time"

	gomail "github.com/emersion/go-message/mail"
)

var (
	// ErrNoRecipients is returned when To is empty.
	ErrNoRecipients = errors.New("no recipients provided")
	// ErrNoSender is returned when both Message.From and the configured default are empty.
	ErrNoSender = errors.New("no sender provided")
)

// Message is a plain-text email.
type Message struct {
	// From overrides the sender configured on the transport.
	From     string
	To       []string
	Subject  string
	TextBody string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ParseAddress parses one RFC 5322 address.
func ParseAddress(addr string) (*gomail.Address, error) {
	a, err := mail.ParseAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", addr, err)
	}
	return a, nil
}

// Compose renders msg as an RFC 5322 message with a single text/plain part.
func Compose(msg Message, from string, now time.Time) ([]byte, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}
	if from == "" {
		return nil, ErrNoSender
	}

	sender, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parse sender %q: %w", from, err)
	}
	to := make([]*gomail.Address, 0, len(msg.To))
	for _, addr := range msg.To {
		a, err := mail.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("parse recipient %q: %w", addr, err)
		}
		to = append(to, a)
	}

	var h gomail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*gomail.Address{sender})
	h.SetAddressList("To", to)
	h.SetSubject(msg.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mime writer: %w", err)
	}
	if _, err := io.WriteString(w, msg.TextBody); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close mime writer: %w", err)
	}
	return buf.Bytes(), nil
}

// addresses strips display names, which SMTP envelopes do not carry.
func addresses(list []string) ([]string, error) {
	out := make([]string, 0, len(list))
	for _, s := range list {
		a, err := mail.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("parse address %q: %w", s, err)
		}
		out = append(out, a.Address)
	}
	return out, nil
}
