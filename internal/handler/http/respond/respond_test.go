package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name string
		code int
		data any
		body string
	}{
		{name: "map", code: http.StatusOK, data: map[string]string{"status": "ok"}, body: `{"status":"ok"}` + "\n"},
		{name: "struct", code: http.StatusServiceUnavailable, data: struct {
			Healthy bool `json:"healthy"`
		}{}, body: `{"healthy":false}` + "\n"},
		{name: "nil", code: http.StatusNoContent, data: nil, body: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.code, tt.data)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestError_Sanitizes(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusServiceUnavailable, errors.New("open postgres://app:pw@db/notices: refused"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"open postgres://app:****@db/notices: refused"}`, w.Body.String())
}
