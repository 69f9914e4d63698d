// Package respond writes the JSON bodies of the worker's operational
// endpoints. Error text is sanitized before it leaves the process.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes v with the given status code. A nil v writes no body.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent.
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// Error writes {"error": "..."} with credentials masked.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": SanitizeError(err)})
}
