package response

import (
	"encoding/json"
	"net/http"
)

// Stable machine-readable error codes for submission failures.
const (
	CodeInvalidSubdomain = "INVALID_SUBDOMAIN"
	CodeSubdomainExists  = "SUBDOMAIN_EXISTS"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteCodedError writes an error with a stable code alongside the human
// message.
func WriteCodedError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, map[string]string{"error": message, "code": code})
}
