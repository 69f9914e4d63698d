package drain_test

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/infra/alert"
	"notice-dispatch/internal/infra/lock"
	"notice-dispatch/internal/infra/mailer"
	"notice-dispatch/internal/infra/render"
	"notice-dispatch/internal/observability/metrics"
	"notice-dispatch/internal/usecase/drain"
	"notice-dispatch/internal/usecase/notice"
	"notice-dispatch/internal/usecase/notify"
	"notice-dispatch/internal/usecase/notify/notifytest"
)

/*──────────────────── helpers ────────────────────*/

type recordingAlerter struct {
	mu      sync.Mutex
	reports []alert.Report
}

func (a *recordingAlerter) Alert(_ context.Context, r alert.Report) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reports = append(a.reports, r)
	return nil
}

type harness struct {
	*notifytest.Fixture
	locks    *lock.FileProvider
	alerter  *recordingAlerter
	observed []drain.Stats
	engine   *drain.Engine
}

func newHarness(t *testing.T, cfg drain.Config) *harness {
	t.Helper()
	h := &harness{
		Fixture: notifytest.New(t, "b1"),
		locks:   lock.NewFileProvider(t.TempDir()),
		alerter: &recordingAlerter{},
	}
	h.NoticeType(t, "comment_posted")
	repos := h.Store.Repositories()
	h.engine = drain.NewEngine(cfg, drain.Deps{
		Locks:   h.locks,
		Batches: repos.Batches,
		Users:   repos.Users,
		Sender:  h.Dispatcher,
		Alerter: h.alerter,
		Observer: drain.ObserverFunc(func(_ context.Context, s drain.Stats) {
			h.observed = append(h.observed, s)
		}),
	})
	return h
}

func (h *harness) queue(t *testing.T, users ...*entity.User) {
	t.Helper()
	require.NoError(t, h.Dispatcher.Queue(context.Background(), notify.Users(users...), "comment_posted", nil))
}

func (h *harness) batches(t *testing.T) []*entity.QueueBatch {
	t.Helper()
	b, err := h.Store.Repositories().Batches.List(context.Background())
	require.NoError(t, err)
	return b
}

/*──────────────────── Run ────────────────────*/

func TestRun_DrainsAndDeletesBatches(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	alice, bob := h.User("alice"), h.User("bob")
	h.queue(t, alice)
	h.queue(t, bob, alice)

	res := h.engine.Run(context.Background())

	require.Equal(t, drain.StateDone, res.State)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2, res.Stats.Batches)
	assert.Equal(t, 3, res.Stats.Sent)
	assert.Equal(t, 3, res.Stats.SentActual)
	assert.NotEmpty(t, res.Stats.RunID)
	assert.Empty(t, h.batches(t))
	assert.Equal(t, []int64{alice.ID, bob.ID, alice.ID}, h.Backends[0].DeliveredTo())

	require.Len(t, h.observed, 1)
	assert.Equal(t, res.Stats, h.observed[0])
	assert.Empty(t, h.alerter.reports)
}

func TestRun_DeletedUserIsSkipped(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	a, b, c := h.User("a"), h.User("b"), h.User("c")
	h.queue(t, a, b, c)
	h.Store.DeleteUser(b.ID)

	res := h.engine.Run(context.Background())

	require.Equal(t, drain.StateDone, res.State)
	assert.Equal(t, 3, res.Stats.Sent)
	assert.Equal(t, 2, res.Stats.SentActual)
	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Equal(t, 1, res.Stats.Batches)
	assert.Empty(t, h.batches(t))
	assert.Equal(t, []int64{a.ID, c.ID}, h.Backends[0].DeliveredTo())
}

func TestRun_IneligibleCountsAsSentOnly(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	alice := h.User("alice")
	nt, err := h.Notices.NoticeType(context.Background(), "comment_posted")
	require.NoError(t, err)
	require.NoError(t, h.Settings.SetSend(context.Background(), alice, nt, h.Backends[0].Medium(), false))
	h.queue(t, alice)

	res := h.engine.Run(context.Background())

	require.Equal(t, drain.StateDone, res.State)
	assert.Equal(t, 1, res.Stats.Sent)
	assert.Zero(t, res.Stats.SentActual)
	assert.Zero(t, res.Stats.Skipped)
}

func TestRun_DeletedSenderStillDelivers(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	alice, bob := h.User("alice"), h.User("bob")
	ctx := context.Background()
	require.NoError(t, h.Dispatcher.Queue(ctx, notify.Users(alice), "comment_posted",
		map[string]any{"message": "hi"}, notify.WithSender(bob)))
	h.Store.DeleteUser(bob.ID)

	res := h.engine.Run(ctx)

	require.Equal(t, drain.StateDone, res.State)
	d := h.Backends[0].Deliveries()
	require.Len(t, d, 1)
	assert.Nil(t, d[0].Sender)
	assert.Equal(t, "hi", d[0].Context["message"])
}

func TestRun_QueuedRenderMatchesSendNow(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	renderer, ok := h.Dispatcher.Renderer.(*render.TemplateRenderer)
	require.True(t, ok)
	require.NoError(t, renderer.Add("comment_posted", render.FormatNotice, "",
		`{{if eq .count 3}}three{{else}}other{{end}} {{.ratio}}`))

	ctx := context.Background()
	extra := map[string]any{"count": 3, "ratio": 0.5}
	direct, queued := h.User("direct"), h.User("queued")

	_, err := h.Dispatcher.SendNow(ctx, []*entity.User{direct}, "comment_posted", extra)
	require.NoError(t, err)
	require.NoError(t, h.Dispatcher.Queue(ctx, notify.Users(queued), "comment_posted", extra))
	require.Equal(t, drain.StateDone, h.engine.Run(ctx).State)

	message := func(u *entity.User) string {
		t.Helper()
		list, err := h.Notices.NoticesFor(ctx, u, notice.ListOptions{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		return list[0].Message
	}
	assert.Equal(t, "three 0.5", message(direct))
	assert.Equal(t, message(direct), message(queued))
}

func TestRun_QueuedFlagsSurvive(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	alice := h.User("alice")
	ctx := context.Background()
	require.NoError(t, h.Dispatcher.Queue(ctx, notify.Users(alice), "comment_posted", nil, notify.WithoutNotice()))

	require.Equal(t, drain.StateDone, h.engine.Run(ctx).State)

	count, err := h.Notices.UnseenCountFor(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, h.Backends[0].Deliveries(), 1)
}

func TestRun_LockedOut(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	h.queue(t, h.User("alice"))
	ctx := context.Background()

	held, err := h.locks.Acquire(ctx, drain.DefaultLockName, 0)
	require.NoError(t, err)
	defer func() { _ = held.Release(ctx) }()

	before := testutil.ToFloat64(metrics.DrainRunsTotal.WithLabelValues(string(drain.StateLockedOut)))
	res := h.engine.Run(ctx)

	assert.Equal(t, drain.StateLockedOut, res.State)
	assert.NoError(t, res.Err)
	assert.Len(t, h.batches(t), 1)
	assert.Empty(t, h.observed)
	assert.Empty(t, h.alerter.reports)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DrainRunsTotal.WithLabelValues(string(drain.StateLockedOut))))
}

func TestRun_LockWaitTimeout(t *testing.T) {
	h := newHarness(t, drain.Config{LockName: "custom", LockWaitTimeout: 150 * time.Millisecond})
	ctx := context.Background()

	held, err := h.locks.Acquire(ctx, "custom", 0)
	require.NoError(t, err)
	defer func() { _ = held.Release(ctx) }()

	start := time.Now()
	res := h.engine.Run(ctx)
	assert.Equal(t, drain.StateLockedOut, res.State)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.GreaterOrEqual(t, res.Stats.Elapsed, 150*time.Millisecond)
}

func TestRun_PanicIsContained(t *testing.T) {
	h := newHarness(t, drain.Config{SiteName: "example.com"})
	a, c := h.User("a"), h.User("c")
	h.Backends[0].PanicFor[c.ID] = "backend exploded"
	h.queue(t, a, c)
	ctx := context.Background()

	var res drain.Result
	require.NotPanics(t, func() { res = h.engine.Run(ctx) })

	assert.Equal(t, drain.StateFailed, res.State)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "backend exploded")
	assert.Equal(t, 1, res.Stats.SentActual)

	require.Len(t, h.alerter.reports, 1)
	r := h.alerter.reports[0]
	assert.True(t, strings.HasPrefix(r.Subject, "[example.com emit_notices] "), r.Subject)
	assert.NotEmpty(t, r.Stack)
	assert.Equal(t, res.Stats.RunID, r.RunID)

	assert.Len(t, h.batches(t), 1, "an aborted batch stays queued")
	assert.Empty(t, h.observed)

	// the lock was released
	again, err := h.locks.Acquire(ctx, drain.DefaultLockName, 0)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRun_DeliveryErrorIsContained(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	a := h.User("a")
	h.Backends[0].FailFor[a.ID] = errors.New("relay refused")
	h.queue(t, a)

	res := h.engine.Run(context.Background())

	assert.Equal(t, drain.StateFailed, res.State)
	var de *notify.DeliveryError
	assert.ErrorAs(t, res.Err, &de)
	require.Len(t, h.alerter.reports, 1)
	assert.Contains(t, h.alerter.reports[0].Subject, "relay refused")
}

func TestRun_UnusableEmailAddressIsSkipped(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	var mu sync.Mutex
	var mailed []string
	transport, err := mailer.NewSMTP(mailer.SMTPConfig{Host: "localhost", Port: 25, From: "noreply@example.com"},
		mailer.WithSendFunc(func(_ string, _ smtp.Auth, _ string, to []string, _ []byte) error {
			mu.Lock()
			defer mu.Unlock()
			mailed = append(mailed, to...)
			return nil
		}))
	require.NoError(t, err)
	registry, err := notify.LoadBackends(
		[]notify.BackendEntry{{Label: "email", Backend: "email"}},
		notify.DefaultFactories(),
		notify.BackendDeps{Settings: h.Settings, Renderer: h.Dispatcher.Renderer, Mailer: transport},
	)
	require.NoError(t, err)
	h.Dispatcher.Registry = registry

	a := h.User("a")
	b := h.Store.AddUser(&entity.User{Username: "b", Email: "not an address", IsActive: true})
	c := h.User("c")
	h.queue(t, a, b, c)

	res := h.engine.Run(context.Background())

	require.Equal(t, drain.StateDone, res.State, "err: %v", res.Err)
	assert.Equal(t, 3, res.Stats.Sent)
	assert.Empty(t, h.batches(t))
	assert.Empty(t, h.alerter.reports)
	assert.Equal(t, []string{"a@example.com", "c@example.com"}, mailed)

	again := h.engine.Run(context.Background())
	require.Equal(t, drain.StateDone, again.State)
	assert.Len(t, mailed, 2)
}

func TestRun_CorruptPayloadIsContained(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	ctx := context.Background()
	require.NoError(t, h.Store.Repositories().Batches.Create(ctx, &entity.QueueBatch{Payload: "not base64!"}))

	res := h.engine.Run(ctx)

	assert.Equal(t, drain.StateFailed, res.State)
	assert.Len(t, h.alerter.reports, 1)
	assert.Len(t, h.batches(t), 1)
}

func TestRun_CanceledContextDoesNotAlert(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	h.queue(t, h.User("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.engine.Run(ctx)

	assert.Equal(t, drain.StateFailed, res.State)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, h.alerter.reports)
}

func TestRun_EmptyQueue(t *testing.T) {
	h := newHarness(t, drain.DefaultConfig())
	res := h.engine.Run(context.Background())
	assert.Equal(t, drain.StateDone, res.State)
	assert.Equal(t, drain.Stats{RunID: res.Stats.RunID, Elapsed: res.Stats.Elapsed}, res.Stats)
	assert.Len(t, h.observed, 1)
}
