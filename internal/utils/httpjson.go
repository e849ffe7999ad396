package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error payload every dev backend route answers with.
type ErrorBody struct {
	Message string `json:"message"`
}

// WriteJSON writes v with the given status. Encoding errors are dropped, the
// status line is already out by then.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"message": msg} with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Message: msg})
}
