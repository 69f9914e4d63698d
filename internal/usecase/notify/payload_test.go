package notify_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notice-dispatch/internal/usecase/notify"
)

func TestPayload_RoundTripKeepsOrderAndFlags(t *testing.T) {
	sender := int64(9)
	in := []notify.PayloadEntry{
		{UserID: 3, Label: "a", ExtraContext: map[string]any{"n": 1}, SenderID: &sender, IssueNotice: true, OnSite: false},
		{UserID: 1, Label: "b", IssueNotice: false, OnSite: true},
	}
	encoded, err := notify.EncodePayload(in)
	require.NoError(t, err)

	out, err := notify.DecodePayload(encoded)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, int64(3), out[0].UserID)
	assert.Equal(t, int64(1), out[0].ExtraContext["n"])
	assert.Equal(t, sender, *out[0].SenderID)
	assert.True(t, out[0].IssueNotice)
	assert.False(t, out[0].OnSite)

	assert.Equal(t, int64(1), out[1].UserID)
	assert.Nil(t, out[1].SenderID)
	assert.False(t, out[1].IssueNotice)
}

func TestDecodePayload_Numbers(t *testing.T) {
	encoded, err := notify.EncodePayload([]notify.PayloadEntry{{
		UserID: 1,
		Label:  "x",
		ExtraContext: map[string]any{
			"count":  3,
			"ratio":  0.5,
			"big":    int64(1) << 60,
			"nested": map[string]any{"id": 7, "tags": []any{1, 2.5, "x"}},
		},
	}})
	require.NoError(t, err)

	out, err := notify.DecodePayload(encoded)
	require.NoError(t, err)
	require.Len(t, out, 1)

	extra := out[0].ExtraContext
	assert.Equal(t, int64(3), extra["count"])
	assert.Equal(t, 0.5, extra["ratio"])
	assert.Equal(t, int64(1)<<60, extra["big"])
	assert.Equal(t, map[string]any{"id": int64(7), "tags": []any{int64(1), 2.5, "x"}}, extra["nested"])
}

func TestDecodePayload_MissingFlagsDefaultTrue(t *testing.T) {
	raw := `{"version":1,"entries":[{"user_id":5,"label":"x","sender_id":null}]}`
	out, err := notify.DecodePayload(base64.StdEncoding.EncodeToString([]byte(raw)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IssueNotice)
	assert.True(t, out[0].OnSite)
}

func TestDecodePayload_Errors(t *testing.T) {
	_, err := notify.DecodePayload(base64.StdEncoding.EncodeToString([]byte(`{"version":2,"entries":[]}`)))
	assert.ErrorIs(t, err, notify.ErrUnsupportedPayload)

	_, err = notify.DecodePayload("%%%not base64")
	assert.Error(t, err)

	_, err = notify.DecodePayload(base64.StdEncoding.EncodeToString([]byte(`[1,2`)))
	assert.Error(t, err)
}

func TestEncodePayload_RejectsUnencodableContext(t *testing.T) {
	_, err := notify.EncodePayload([]notify.PayloadEntry{{UserID: 1, Label: "x", ExtraContext: map[string]any{"ch": make(chan int)}}})
	assert.Error(t, err)
}

func TestPayloadEntry_Options(t *testing.T) {
	assert.Len(t, notify.PayloadEntry{IssueNotice: true, OnSite: true}.Options(nil), 1)
	assert.Len(t, notify.PayloadEntry{IssueNotice: false}.Options(nil), 2)
}
