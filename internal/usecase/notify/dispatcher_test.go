package notify_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
	"notice-dispatch/internal/usecase/notice"
	"notice-dispatch/internal/usecase/notify"
	"notice-dispatch/internal/usecase/notify/notifytest"
)

func ev(medium string, u *entity.User) string {
	return fmt.Sprintf("%s:%d", medium, u.ID)
}

/*──────────────────── SendNow ────────────────────*/

func TestSendNow_RegistryOrderPerUser(t *testing.T) {
	f := notifytest.New(t, "b1", "b2")
	f.NoticeType(t, "comment_posted")
	alice, bob := f.User("alice"), f.User("bob")

	sent, err := f.Dispatcher.SendNow(context.Background(), []*entity.User{alice, bob}, "comment_posted", nil)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{ev("b1", alice), ev("b2", alice), ev("b1", bob), ev("b2", bob)}, f.Journal.Events())
}

func TestSendNow_UnknownLabel(t *testing.T) {
	f := notifytest.New(t, "b1")
	alice := f.User("alice")

	sent, err := f.Dispatcher.SendNow(context.Background(), []*entity.User{alice}, "nope", nil)
	assert.False(t, sent)

	var nf *notify.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.Label)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.Empty(t, f.Journal.Events())
}

func TestSendNow_RespectsStoredSettings(t *testing.T) {
	f := notifytest.New(t, "b1", "b2")
	nt := f.NoticeType(t, "comment_posted")
	alice := f.User("alice")
	ctx := context.Background()

	require.NoError(t, f.Settings.SetSend(ctx, alice, nt, f.Backends[1].Medium(), false))

	sent, err := f.Dispatcher.SendNow(ctx, []*entity.User{alice}, "comment_posted", nil)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{ev("b1", alice)}, f.Journal.Events())
}

func TestSendNow_NoEligibleBackend(t *testing.T) {
	f := notifytest.New(t, "b1")
	ctx := context.Background()
	_, _, err := f.Notices.CreateNoticeType(ctx, notice.NoticeTypeInput{Label: "quiet", Display: "Quiet", Default: 1})
	require.NoError(t, err)
	alice := f.User("alice")

	sent, err := f.Dispatcher.SendNow(ctx, []*entity.User{alice}, "quiet", nil)
	require.NoError(t, err)
	assert.False(t, sent, "sensitivity 2 above threshold 1 must not deliver")

	// the default was pinned on first read
	settings, err := f.Store.Repositories().Settings.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.False(t, settings[0].Send)
	assert.Equal(t, "b1", settings[0].Medium)
}

func TestSendNow_RecordsNotice(t *testing.T) {
	f := notifytest.New(t, "b1")
	f.NoticeType(t, "comment_posted")
	alice, bob := f.User("alice"), f.User("bob")
	ctx := context.Background()

	_, err := f.Dispatcher.SendNow(ctx, []*entity.User{alice}, "comment_posted",
		map[string]any{"message": "bob commented"}, notify.WithSender(bob), notify.OnSite(false))
	require.NoError(t, err)

	notices, err := f.Notices.NoticesFor(ctx, alice, notice.ListOptions{})
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "bob commented", notices[0].Message)
	assert.False(t, notices[0].OnSite)
	require.NotNil(t, notices[0].SenderID)
	assert.Equal(t, bob.ID, *notices[0].SenderID)

	d := f.Backends[0].Deliveries()
	require.Len(t, d, 1)
	assert.Equal(t, bob, d[0].Sender)
	assert.Equal(t, "bob commented", d[0].Context["message"])
	assert.Equal(t, "example.com", d[0].Context["site_name"])
	assert.Equal(t, "en", d[0].Locale)
}

func TestSendNow_WithoutNotice(t *testing.T) {
	f := notifytest.New(t, "b1")
	f.NoticeType(t, "comment_posted")
	alice := f.User("alice")
	ctx := context.Background()

	sent, err := f.Dispatcher.SendNow(ctx, []*entity.User{alice}, "comment_posted", nil, notify.WithoutNotice())
	require.NoError(t, err)
	assert.True(t, sent)

	count, err := f.Notices.UnseenCountFor(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSendNow_PerUserLocale(t *testing.T) {
	f := notifytest.New(t, "b1")
	f.NoticeType(t, "comment_posted")
	alice := f.User("alice")
	pierre := f.Store.AddUser(&entity.User{Username: "pierre", Locale: "fr-FR", IsActive: true})

	_, err := f.Dispatcher.SendNow(context.Background(), []*entity.User{pierre, alice}, "comment_posted", nil)
	require.NoError(t, err)

	d := f.Backends[0].Deliveries()
	require.Len(t, d, 2)
	assert.Equal(t, "fr", d[0].Locale)
	assert.Equal(t, "en", d[1].Locale)
}

func TestSendNow_DeliveryError(t *testing.T) {
	f := notifytest.New(t, "b1", "b2")
	f.NoticeType(t, "comment_posted")
	alice := f.User("alice")
	boom := errors.New("relay down")
	f.Backends[1].FailFor[alice.ID] = boom

	sent, err := f.Dispatcher.SendNow(context.Background(), []*entity.User{alice}, "comment_posted", nil)
	assert.True(t, sent, "the first backend delivered before the failure")

	var de *notify.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "b2", de.Medium)
	assert.Equal(t, alice.ID, de.UserID)
	assert.ErrorIs(t, err, boom)
}

/*──────────────────── Queue ────────────────────*/

func TestQueue_OneBatchNoDelivery(t *testing.T) {
	f := notifytest.New(t, "b1")
	f.NoticeType(t, "comment_posted")
	alice, bob := f.User("alice"), f.User("bob")
	ctx := context.Background()

	err := f.Dispatcher.Queue(ctx, notify.Users(alice, bob), "comment_posted",
		map[string]any{"post": "hello"}, notify.WithSender(bob), notify.WithoutNotice())
	require.NoError(t, err)

	assert.Empty(t, f.Journal.Events())
	count, err := f.Notices.UnseenCountFor(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	batches, err := f.Store.Repositories().Batches.List(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)

	entries, err := notify.DecodePayload(batches[0].Payload)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, alice.ID, entries[0].UserID)
	assert.Equal(t, bob.ID, entries[1].UserID)
	for _, e := range entries {
		assert.Equal(t, "comment_posted", e.Label)
		assert.Equal(t, "hello", e.ExtraContext["post"])
		require.NotNil(t, e.SenderID)
		assert.Equal(t, bob.ID, *e.SenderID)
		assert.False(t, e.IssueNotice)
		assert.True(t, e.OnSite)
	}
}

func TestQueue_UserQueryPullsActiveIDs(t *testing.T) {
	f := notifytest.New(t, "b1")
	f.NoticeType(t, "digest")
	f.User("alice")
	f.Store.AddUser(&entity.User{Username: "gone", IsActive: false})
	f.User("carol")
	ctx := context.Background()
	repos := f.Store.Repositories()

	require.NoError(t, f.Dispatcher.Queue(ctx, notify.UserQuery(repos.Users, repository.UserFilter{}), "digest", nil))

	batches, err := repos.Batches.List(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	entries, err := notify.DecodePayload(batches[0].Payload)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestQueue_NoRecipientsStoresNothing(t *testing.T) {
	f := notifytest.New(t, "b1")
	f.NoticeType(t, "digest")
	ctx := context.Background()

	require.NoError(t, f.Dispatcher.Queue(ctx, notify.Users(), "digest", nil))
	batches, err := f.Store.Repositories().Batches.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestQueue_UnknownLabel(t *testing.T) {
	f := notifytest.New(t, "b1")
	err := f.Dispatcher.Queue(context.Background(), notify.Users(f.User("alice")), "nope", nil)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

/*──────────────────── Send ────────────────────*/

func TestSend_ConflictingModes(t *testing.T) {
	f := notifytest.New(t, "b1")
	f.NoticeType(t, "comment_posted")

	_, err := f.Dispatcher.Send(context.Background(), notify.Users(f.User("alice")), "comment_posted", nil,
		notify.WithQueue(), notify.WithNow())
	assert.ErrorIs(t, err, notify.ErrConflictingSendMode)

	var ce *notify.ConfigurationError
	assert.ErrorAs(t, err, &ce)
	assert.Empty(t, f.Journal.Events())
}

func TestSend_Routing(t *testing.T) {
	tests := []struct {
		name       string
		queueAll   bool
		opts       []notify.Option
		wantQueued bool
	}{
		{"default sends now", false, nil, false},
		{"queue all queues", true, nil, true},
		{"with queue overrides default", false, []notify.Option{notify.WithQueue()}, true},
		{"with now overrides queue all", true, []notify.Option{notify.WithNow()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := notifytest.New(t, "b1")
			f.NoticeType(t, "comment_posted")
			f.Dispatcher.QueueAll = tt.queueAll
			ctx := context.Background()

			alice := f.User("alice")
			sent, err := f.Dispatcher.Send(ctx, notify.Users(alice), "comment_posted", nil, tt.opts...)
			require.NoError(t, err)

			batches, err := f.Store.Repositories().Batches.List(ctx)
			require.NoError(t, err)
			if tt.wantQueued {
				assert.False(t, sent)
				assert.Len(t, batches, 1)
				assert.Empty(t, f.Journal.Events())
			} else {
				assert.True(t, sent)
				assert.Empty(t, batches)
				assert.Equal(t, []string{ev("b1", alice)}, f.Journal.Events())
			}
		})
	}
}
