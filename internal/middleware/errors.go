package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

// Failure messages of the structured 401/403 responses.
const (
	MsgUnauthenticated = "Unauthorized - Authentication required"
	MsgForbidden       = "Forbidden - Insufficient privileges"
)

// ErrorBody is the structured authentication/authorization failure response.
// Clients parse these four fields; the shape must not change.
type ErrorBody struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// WriteError writes an ErrorBody for r with the given status.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string, now time.Time) {
	body := ErrorBody{
		Error:     message,
		Status:    status,
		Path:      r.URL.Path,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
