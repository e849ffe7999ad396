package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz reports whether the stores the API needs are wired.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case d.MemoryIndex == nil:
			utils.WriteJSON(w, http.StatusServiceUnavailable, readyzResponse{Error: "index not initialized"})
		case d.Sessions == nil:
			utils.WriteJSON(w, http.StatusServiceUnavailable, readyzResponse{Error: "session table not initialized"})
		default:
			utils.WriteJSON(w, http.StatusOK, readyzResponse{Ready: true})
		}
	}
}
