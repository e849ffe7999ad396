package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

// Healthz reports process liveness and build metadata.
func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: d.Now().Sub(start).Seconds(),
		})
	}
}

type rootResponse struct {
	Message string `json:"message"`
	API     string `json:"api"`
}

// Root answers the bare server root, which is what the connection probe
// checks first.
func Root(d deps.Deps) http.HandlerFunc {
	api := d.APIPrefix
	if api == "" {
		api = "/"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, rootResponse{
			Message: "stash development API is running",
			API:     api,
		})
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health is the optional API-level health route.
func Health(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, healthResponse{
			Status:    "ok",
			Timestamp: d.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
}
