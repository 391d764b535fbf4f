package server

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON error document the server answers with.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed call. Details carries the upstream
// response body when the REST API answered with an error status.
type ErrorDetail struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{
		Message: message,
		Status:  status,
		Details: details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
