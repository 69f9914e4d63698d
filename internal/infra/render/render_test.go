package render

import (
	"context"
	"testing"
	"testing/fstest"

	"notice-dispatch/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	r, err := NewTemplateRenderer(NewCatalog(DefaultLocale))
	require.NoError(t, err)
	return r
}

func sampleData() map[string]any {
	return map[string]any{
		"notice_type": &entity.NoticeType{Label: "comment_posted", Display: "Comment posted", Description: "someone commented"},
		"recipient":   &entity.User{Username: "alice"},
		"sender":      &entity.User{Username: "bob"},
		"site_name":   "example.com",
	}
}

func TestCatalog_Resolve(t *testing.T) {
	c := NewCatalog("fr")

	tests := []struct {
		name string
		user *entity.User
		want string
	}{
		{"nil user gets default", nil, "fr"},
		{"empty locale gets default", &entity.User{}, "fr"},
		{"supported locale", &entity.User{Locale: "de"}, "de"},
		{"bcp47 region falls back to base", &entity.User{Locale: "es-MX"}, "es"},
		{"unsupported locale gets default", &entity.User{Locale: "xx"}, "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Resolve(tt.user))
		})
	}
}

func TestCatalog_UnknownDefault(t *testing.T) {
	assert.Equal(t, "en", NewCatalog("klingon").Default())
}

func TestCatalog_AddTranslation_Unsupported(t *testing.T) {
	err := NewCatalog("en").AddTranslation("xx", "k", "v")
	var target *UnsupportedLocaleError
	assert.ErrorAs(t, err, &target)
}

func TestTemplateRenderer_Builtins(t *testing.T) {
	r := newRenderer(t)
	ctx := context.Background()

	short, err := r.Render(ctx, "comment_posted", FormatShort, "en", sampleData())
	require.NoError(t, err)
	assert.Equal(t, "Comment posted", short)

	subject, err := r.Render(ctx, "comment_posted", FormatSubject, "en", sampleData())
	require.NoError(t, err)
	assert.Equal(t, "[example.com] Comment posted", subject)

	notice, err := r.Render(ctx, "comment_posted", FormatNotice, "en", sampleData())
	require.NoError(t, err)
	assert.Equal(t, "someone commented", notice)

	full, err := r.Render(ctx, "comment_posted", FormatFull, "en", sampleData())
	require.NoError(t, err)
	assert.Contains(t, full, "alice,")
	assert.Contains(t, full, "Sent by bob")
}

func TestTemplateRenderer_LocalizedPerCall(t *testing.T) {
	r := newRenderer(t)
	ctx := context.Background()

	fr, err := r.Render(ctx, "comment_posted", FormatFull, "fr", sampleData())
	require.NoError(t, err)
	en, err := r.Render(ctx, "comment_posted", FormatFull, "en", sampleData())
	require.NoError(t, err)

	assert.Contains(t, fr, "Envoyé par bob")
	assert.Contains(t, en, "Sent by bob")
}

func TestTemplateRenderer_LabelAndLocaleOverrides(t *testing.T) {
	r := newRenderer(t)
	fsys := fstest.MapFS{
		"comment_posted/notice.txt":    {Data: []byte(`{{.recipient.Username}} got a comment`)},
		"comment_posted/notice.de.txt": {Data: []byte(`{{.recipient.Username}} hat einen Kommentar`)},
		"README.md":                    {Data: []byte("ignored")},
	}
	require.NoError(t, r.LoadFS(fsys))
	ctx := context.Background()

	got, err := r.Render(ctx, "comment_posted", FormatNotice, "de", sampleData())
	require.NoError(t, err)
	assert.Equal(t, "alice hat einen Kommentar", got)

	got, err = r.Render(ctx, "comment_posted", FormatNotice, "fr", sampleData())
	require.NoError(t, err)
	assert.Equal(t, "alice got a comment", got)

	got, err = r.Render(ctx, "other_type", FormatNotice, "de", sampleData())
	require.NoError(t, err)
	assert.Equal(t, "someone commented", got)
}

func TestTemplateRenderer_ParseError(t *testing.T) {
	r := newRenderer(t)
	assert.Error(t, r.Add("x", FormatShort, "", "{{.broken"))
}

func TestTemplateRenderer_CanceledContext(t *testing.T) {
	r := newRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Render(ctx, "x", FormatShort, "en", sampleData())
	assert.ErrorIs(t, err, context.Canceled)
}
