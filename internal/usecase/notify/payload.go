package notify

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"notice-dispatch/internal/domain/entity"
)

// PayloadVersion is the queue batch format this build writes.
const PayloadVersion = 1

// PayloadEntry is one deferred notice in a queue batch.
type PayloadEntry struct {
	UserID       int64
	Label        string
	ExtraContext map[string]any
	SenderID     *int64
	IssueNotice  bool
	OnSite       bool
}

type wirePayload struct {
	Version int         `json:"version"`
	Entries []wireEntry `json:"entries"`
}

type wireEntry struct {
	UserID       int64          `json:"user_id"`
	Label        string         `json:"label"`
	ExtraContext map[string]any `json:"extra_context,omitempty"`
	SenderID     *int64         `json:"sender_id"`
	IssueNotice  *bool          `json:"issue_notice,omitempty"`
	OnSite       *bool          `json:"on_site,omitempty"`
}

// EncodePayload serializes entries as base64 of versioned JSON. Extra
// context values must be JSON encodable.
func EncodePayload(entries []PayloadEntry) (string, error) {
	wp := wirePayload{Version: PayloadVersion, Entries: make([]wireEntry, len(entries))}
	for i, e := range entries {
		issue, onSite := e.IssueNotice, e.OnSite
		wp.Entries[i] = wireEntry{
			UserID:       e.UserID,
			Label:        e.Label,
			ExtraContext: e.ExtraContext,
			SenderID:     e.SenderID,
			IssueNotice:  &issue,
			OnSite:       &onSite,
		}
	}
	raw, err := json.Marshal(wp)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePayload reverses EncodePayload. Entries without issue_notice or
// on_site get true. Integral numbers in extra context decode as int64 and
// the rest as float64, so templates compare them like the values passed to
// SendNow.
func DecodePayload(payload string) ([]PayloadEntry, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	var wp wirePayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&wp); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if wp.Version != PayloadVersion {
		return nil, fmt.Errorf("version %d: %w", wp.Version, ErrUnsupportedPayload)
	}

	entries := make([]PayloadEntry, len(wp.Entries))
	for i, w := range wp.Entries {
		entries[i] = PayloadEntry{
			UserID:       w.UserID,
			Label:        w.Label,
			ExtraContext: normalizeMap(w.ExtraContext),
			SenderID:     w.SenderID,
			IssueNotice:  w.IssueNotice == nil || *w.IssueNotice,
			OnSite:       w.OnSite == nil || *w.OnSite,
		}
	}
	return entries, nil
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		return normalizeMap(t)
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	default:
		return v
	}
}

// Options turns the entry flags back into SendNow options.
func (e PayloadEntry) Options(sender *entity.User) []Option {
	opts := []Option{OnSite(e.OnSite)}
	if !e.IssueNotice {
		opts = append(opts, WithoutNotice())
	}
	if sender != nil {
		opts = append(opts, WithSender(sender))
	}
	return opts
}
