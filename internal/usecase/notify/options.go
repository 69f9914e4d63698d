package notify

import "notice-dispatch/internal/domain/entity"

type sendOptions struct {
	sender      *entity.User
	issueNotice bool
	onSite      bool
	queue       bool
	now         bool
}

func newSendOptions(opts []Option) sendOptions {
	o := sendOptions{issueNotice: true, onSite: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option customizes one SendNow, Queue or Send call.
type Option func(*sendOptions)

// WithSender names the user the notice is from.
func WithSender(sender *entity.User) Option {
	return func(o *sendOptions) { o.sender = sender }
}

// WithoutNotice delivers without storing a notice history row.
func WithoutNotice() Option {
	return func(o *sendOptions) { o.issueNotice = false }
}

// OnSite sets whether the stored notice is shown in the on-site list.
func OnSite(onSite bool) Option {
	return func(o *sendOptions) { o.onSite = onSite }
}

// WithQueue makes Send queue regardless of the dispatcher default.
func WithQueue() Option {
	return func(o *sendOptions) { o.queue = true }
}

// WithNow makes Send deliver immediately regardless of the dispatcher default.
func WithNow() Option {
	return func(o *sendOptions) { o.now = true }
}
