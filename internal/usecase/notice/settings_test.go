package notice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/infra/adapter/persistence/memory"
	"notice-dispatch/internal/usecase/notice"
)

func TestShouldSend_PinsPolicyDefault(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	settings := &notice.Settings{Repo: repos.Settings}

	alice := store.AddUser(&entity.User{Username: "alice", IsActive: true})
	nt := &entity.NoticeType{Label: "x", Display: "X", Default: 2}
	require.NoError(t, repos.NoticeTypes.Create(ctx, nt))

	email := entity.Medium{ID: 0, Label: "email", SpamSensitivity: 2}
	sms := entity.Medium{ID: 1, Label: "sms", SpamSensitivity: 3}

	ok, err := settings.ShouldSend(ctx, alice, nt, email)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = settings.ShouldSend(ctx, alice, nt, sms)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repos.Settings.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// policy inputs change after the first read; the pinned rows win
	nt.Default = 0
	ok, err = settings.ShouldSend(ctx, alice, nt, email)
	require.NoError(t, err)
	assert.True(t, ok)

	sms.SpamSensitivity = 1
	ok, err = settings.ShouldSend(ctx, alice, nt, sms)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetSend_OverridesDefault(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	settings := &notice.Settings{Repo: repos.Settings}

	alice := store.AddUser(&entity.User{Username: "alice", IsActive: true})
	nt := &entity.NoticeType{Label: "x", Display: "X", Default: 2}
	require.NoError(t, repos.NoticeTypes.Create(ctx, nt))
	email := entity.Medium{Label: "email", SpamSensitivity: 1}

	require.NoError(t, settings.SetSend(ctx, alice, nt, email, false))

	ok, err := settings.ShouldSend(ctx, alice, nt, email)
	require.NoError(t, err)
	assert.False(t, ok)

	// settings are keyed by label, so a medium moving position keeps its row
	email.ID = 5
	ok, err = settings.ShouldSend(ctx, alice, nt, email)
	require.NoError(t, err)
	assert.False(t, ok)
}
