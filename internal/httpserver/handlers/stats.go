package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

type sweepStatus struct {
	Enabled bool   `json:"enabled"`
	LastRun string `json:"last_run,omitempty"`
	Removed int    `json:"removed"`
}

type statsResponse struct {
	Accounts   int         `json:"accounts"`
	Bookmarks  int         `json:"bookmarks"`
	Sessions   int         `json:"sessions"`
	LastChange string      `json:"last_change"`
	Sweeper    sweepStatus `json:"sweeper"`
}

// Stats reports what the dev backend currently holds.
func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statsResponse{
			Accounts:   d.MemoryIndex.AccountCount(),
			Bookmarks:  d.MemoryIndex.BookmarkCount(),
			Sessions:   d.Sessions.Count(),
			LastChange: formatTime(d.MemoryIndex.GetLastChange()),
		}

		if d.LastSweep != nil {
			at, removed := d.LastSweep()
			resp.Sweeper = sweepStatus{Enabled: true, Removed: removed}
			if !at.IsZero() {
				resp.Sweeper.LastRun = formatTime(at)
			}
		}

		utils.WriteJSON(w, http.StatusOK, resp)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}
