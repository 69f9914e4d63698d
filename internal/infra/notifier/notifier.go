// Package notifier posts rendered notices to chat webhooks.
//
// The Slack implementation applies a token bucket rate limit and retries
// transient failures with exponential backoff. NoOpNotifier stands in when a
// webhook is not configured.
package notifier

import (
	"context"
)

// Message is one rendered notice addressed to a chat user.
type Message struct {
	// Mention is the chat platform user ID to mention; empty posts without one.
	Mention string
	// Title is the short form, used for the fallback text.
	Title string
	// Body is the full form, shown in the section block.
	Body string
	// Footer is an optional context line (site name, notice type).
	Footer string
	// Source names the sender for metrics; it is not posted.
	Source string
}

// Notifier sends one message. Implementations handle rate limiting and
// retries internally and must respect context cancellation.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
