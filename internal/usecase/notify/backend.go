// Package notify dispatches notices to the configured delivery backends,
// either immediately or through the durable queue drained by package drain.
package notify

import (
	"context"
	"fmt"
	"maps"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/usecase/notice"
)

// Medium identifies one configured delivery backend.
type Medium = entity.Medium

// Delivery is everything a backend needs to send one notice to one user.
// Context holds the backend default context, the caller's extra context and
// the recipient, sender and notice_type entries.
type Delivery struct {
	Recipient  *entity.User
	Sender     *entity.User
	NoticeType *entity.NoticeType
	Locale     string
	Context    map[string]any
}

// Backend is one delivery channel.
//
// CanSend decides eligibility for a user and type; Deliver is only called
// after CanSend returned true and fails only on transport errors.
// Implementations must be safe for concurrent use.
type Backend interface {
	Medium() Medium
	CanSend(ctx context.Context, user *entity.User, nt *entity.NoticeType) (bool, error)
	Deliver(ctx context.Context, d Delivery) error
	DefaultContext() map[string]any
}

// Site describes the installation notices link back to.
type Site struct {
	Name     string `yaml:"name"`
	Domain   string `yaml:"domain"`
	Protocol string `yaml:"protocol"`
}

// BaseURL returns protocol://domain, defaulting the protocol to https.
func (s Site) BaseURL() string {
	if s.Domain == "" {
		return ""
	}
	protocol := s.Protocol
	if protocol == "" {
		protocol = "https"
	}
	return protocol + "://" + s.Domain
}

// BaseBackend implements the settings part of CanSend and DefaultContext.
// Concrete backends embed it and add channel-specific gating.
type BaseBackend struct {
	medium   Medium
	settings *notice.Settings
	site     Site
}

// NewBaseBackend returns a BaseBackend for medium.
func NewBaseBackend(medium Medium, settings *notice.Settings, site Site) BaseBackend {
	return BaseBackend{medium: medium, settings: settings, site: site}
}

// Medium returns the medium this backend was configured as.
func (b *BaseBackend) Medium() Medium {
	return b.medium
}

// CanSend consults the lazily defaulted notice setting.
func (b *BaseBackend) CanSend(ctx context.Context, user *entity.User, nt *entity.NoticeType) (bool, error) {
	ok, err := b.settings.ShouldSend(ctx, user, nt, b.medium)
	if err != nil {
		return false, fmt.Errorf("check %s settings: %w", b.medium.Label, err)
	}
	return ok, nil
}

// DefaultContext returns the site entries shared by every render.
func (b *BaseBackend) DefaultContext() map[string]any {
	protocol := b.site.Protocol
	if protocol == "" {
		protocol = "https"
	}
	return map[string]any{
		"site_name": b.site.Name,
		"domain":    b.site.Domain,
		"protocol":  protocol,
		"base_url":  b.site.BaseURL(),
	}
}

// renderData merges the render inputs for one recipient. Later sources win:
// defaults, then extra context, then the fixed entries.
func renderData(defaults, extra map[string]any, recipient, sender *entity.User, nt *entity.NoticeType) map[string]any {
	data := make(map[string]any, len(defaults)+len(extra)+3)
	maps.Copy(data, defaults)
	maps.Copy(data, extra)
	data["recipient"] = recipient
	data["notice_type"] = nt
	if sender != nil {
		data["sender"] = sender
	}
	return data
}
