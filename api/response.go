package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes carried in the envelope so clients can branch without
// parsing messages.
const (
	CodeNoArtifacts    = "no_artifacts"
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal_error"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// writeJSON writes a JSON body with the given status. Encoding
// failures after WriteHeader cannot reach the client anymore; they are
// logged and dropped.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeSuccess writes a success envelope.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

// writeError writes a failure envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Response{Success: false, Error: message, Code: code})
}
