package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

// Sweep triggers a manual expired-session sweep
func Sweep(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.SweepTrigger <- struct{}{}:
			d.Logger.Info("manual session sweep triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			utils.WriteJSON(w, http.StatusAccepted, messageResponse{Message: "Sweep triggered"})
		default:
			d.Logger.Warn("session sweep already pending",
				logger.String("remote_ip", r.RemoteAddr))
			utils.WriteError(w, http.StatusTooManyRequests, "Sweep already pending, please wait")
		}
	}
}
