package services

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIResponse is the envelope every endpoint writes
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WriteData writes a success envelope with the given status code
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// WriteError classifies err, logs server-side failures with their cause, and
// writes the caller-safe message. Upstream and storage details never leak.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := AsAppError(err)
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError || appErr.Kind == KindUpstream {
		slog.Error("Request failed", "error", appErr.Err, "message", appErr.Message, "path", r.URL.Path, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: appErr.Message})
}
