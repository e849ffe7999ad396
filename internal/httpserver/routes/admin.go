package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
)

func init() { Register(registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		admin.Get("/stats", handlers.Stats(d))
		if d.SweepTrigger != nil {
			admin.Post("/sweep", handlers.Sweep(d))
		}
	})
}
