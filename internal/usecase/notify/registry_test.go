package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/infra/mailer"
	"notice-dispatch/internal/infra/notifier"
	"notice-dispatch/internal/infra/render"
	"notice-dispatch/internal/usecase/notify"
	"notice-dispatch/internal/usecase/notify/notifytest"
)

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeSlack struct {
	sent []notifier.Message
}

func (s *fakeSlack) Notify(_ context.Context, msg notifier.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

func intPtr(v int) *int { return &v }

func testDeps(t *testing.T, f *notifytest.Fixture) notify.BackendDeps {
	t.Helper()
	r, err := render.NewTemplateRenderer(render.NewCatalog("en"))
	require.NoError(t, err)
	return notify.BackendDeps{
		Settings: f.Settings,
		Renderer: r,
		Mailer:   &fakeMailer{},
		Slack:    &fakeSlack{},
		Site:     notify.Site{Name: "example.com", Domain: "example.com"},
	}
}

func TestLoadBackends(t *testing.T) {
	f := notifytest.New(t)
	reg, err := notify.LoadBackends([]notify.BackendEntry{
		{Label: "email", Backend: "email"},
		{Label: "chat", Backend: "slack", SpamSensitivity: intPtr(1)},
		{Label: "audit", Backend: "log", SpamSensitivity: intPtr(0)},
	}, notify.DefaultFactories(), testDeps(t, f))
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	var media []notify.Medium
	for _, b := range reg.Backends() {
		media = append(media, b.Medium())
	}
	assert.Equal(t, []notify.Medium{
		{ID: 0, Label: "email", SpamSensitivity: entity.DefaultSpamSensitivity},
		{ID: 1, Label: "chat", SpamSensitivity: 1},
		{ID: 2, Label: "audit", SpamSensitivity: 0},
	}, media)
}

func TestLoadBackends_ConfigurationErrors(t *testing.T) {
	f := notifytest.New(t)
	deps := testDeps(t, f)

	tests := []struct {
		name    string
		entries []notify.BackendEntry
		deps    notify.BackendDeps
	}{
		{"unknown reference", []notify.BackendEntry{{Label: "x", Backend: "pigeon"}}, deps},
		{"empty label", []notify.BackendEntry{{Backend: "log"}}, deps},
		{"invalid label", []notify.BackendEntry{{Label: "Has Space", Backend: "log"}}, deps},
		{"duplicate label", []notify.BackendEntry{{Label: "x", Backend: "log"}, {Label: "x", Backend: "email"}}, deps},
		{"email without transport", []notify.BackendEntry{{Label: "email", Backend: "email"}}, notify.BackendDeps{Settings: f.Settings}},
		{"slack without notifier", []notify.BackendEntry{{Label: "chat", Backend: "slack"}}, notify.BackendDeps{Settings: f.Settings}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := notify.LoadBackends(tt.entries, notify.DefaultFactories(), tt.deps)
			var ce *notify.ConfigurationError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestEmailBackend(t *testing.T) {
	f := notifytest.New(t)
	nt := f.NoticeType(t, "comment_posted")
	deps := testDeps(t, f)
	mail := deps.Mailer.(*fakeMailer)
	ctx := context.Background()

	b, err := notify.NewEmailBackend(notify.Medium{Label: "email", SpamSensitivity: 2}, deps)
	require.NoError(t, err)

	noAddress := f.Store.AddUser(&entity.User{Username: "noaddr", IsActive: true})
	ok, err := b.CanSend(ctx, noAddress, nt)
	require.NoError(t, err)
	assert.False(t, ok)

	malformed := f.Store.AddUser(&entity.User{Username: "malformed", Email: "not an address", IsActive: true})
	ok, err = b.CanSend(ctx, malformed, nt)
	require.NoError(t, err)
	assert.False(t, ok, "unparseable address must be ineligible")

	alice := f.User("alice")
	ok, err = b.CanSend(ctx, alice, nt)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.Deliver(ctx, notify.Delivery{
		Recipient:  alice,
		NoticeType: nt,
		Locale:     "en",
		Context:    map[string]any{"notice_type": nt, "recipient": alice, "site_name": "example.com"},
	}))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"alice@example.com"}, mail.sent[0].To)
	assert.Equal(t, "[example.com] comment_posted", mail.sent[0].Subject)
	assert.Contains(t, mail.sent[0].TextBody, "alice,")
}

func TestSlackBackend(t *testing.T) {
	f := notifytest.New(t)
	nt := f.NoticeType(t, "comment_posted")
	deps := testDeps(t, f)
	slack := deps.Slack.(*fakeSlack)
	ctx := context.Background()

	b, err := notify.NewSlackBackend(notify.Medium{Label: "chat", SpamSensitivity: 2}, deps)
	require.NoError(t, err)

	alice := f.User("alice")
	ok, err := b.CanSend(ctx, alice, nt)
	require.NoError(t, err)
	assert.False(t, ok, "no linked slack account")

	linked := f.Store.AddUser(&entity.User{Username: "carol", SlackUserID: "U42", IsActive: true})
	ok, err = b.CanSend(ctx, linked, nt)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.Deliver(ctx, notify.Delivery{
		Recipient:  linked,
		NoticeType: nt,
		Locale:     "en",
		Context:    map[string]any{"notice_type": nt, "recipient": linked},
	}))
	require.Len(t, slack.sent, 1)
	assert.Equal(t, "U42", slack.sent[0].Mention)
	assert.Equal(t, "comment_posted", slack.sent[0].Title)
	assert.Equal(t, "example.com • comment_posted", slack.sent[0].Footer)
	assert.Equal(t, "chat", slack.sent[0].Source)
}

func TestSlackBackend_SharedNotifierKeepsMediumSource(t *testing.T) {
	f := notifytest.New(t)
	nt := f.NoticeType(t, "comment_posted")
	deps := testDeps(t, f)
	slack := deps.Slack.(*fakeSlack)
	ctx := context.Background()

	reg, err := notify.LoadBackends([]notify.BackendEntry{
		{Label: "chat", Backend: "slack"},
		{Label: "alerts", Backend: "slack"},
	}, notify.DefaultFactories(), deps)
	require.NoError(t, err)

	linked := f.Store.AddUser(&entity.User{Username: "carol", SlackUserID: "U42", IsActive: true})
	for _, b := range reg.Backends() {
		require.NoError(t, b.Deliver(ctx, notify.Delivery{
			Recipient:  linked,
			NoticeType: nt,
			Locale:     "en",
			Context:    map[string]any{"notice_type": nt, "recipient": linked},
		}))
	}
	require.Len(t, slack.sent, 2)
	assert.Equal(t, "chat", slack.sent[0].Source)
	assert.Equal(t, "alerts", slack.sent[1].Source)
}

type failingBackend struct {
	notify.BaseBackend
	calls int
}

func (b *failingBackend) Deliver(context.Context, notify.Delivery) error {
	b.calls++
	return errors.New("transport down")
}

func TestGuard_OpensAfterRepeatedFailures(t *testing.T) {
	f := notifytest.New(t)
	inner := &failingBackend{BaseBackend: notify.NewBaseBackend(notify.Medium{Label: "guarded"}, f.Settings, notify.Site{})}
	g := notify.Guard(inner)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.Error(t, g.Deliver(ctx, notify.Delivery{}))
	}
	err := g.Deliver(ctx, notify.Delivery{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, inner.calls, "open breaker must not call the backend")
	assert.Equal(t, "guarded", g.Medium().Label)
}

func TestRegistry_Health(t *testing.T) {
	f := notifytest.New(t)
	inner := &failingBackend{BaseBackend: notify.NewBaseBackend(notify.Medium{Label: "flaky"}, f.Settings, notify.Site{})}
	g := notify.Guard(inner)
	plain := notifytest.NewBackend(notify.Medium{ID: 1, Label: "plain"}, f.Settings)
	reg := notify.NewRegistry(g, plain)

	assert.Equal(t, []notify.BackendStatus{{Label: "flaky"}, {Label: "plain"}}, reg.Health())

	for i := 0; i < 5; i++ {
		_ = g.Deliver(context.Background(), notify.Delivery{})
	}
	assert.Equal(t, []notify.BackendStatus{{Label: "flaky", CircuitOpen: true}, {Label: "plain"}}, reg.Health())
}
