package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerHealth) }

func registerHealth(r chi.Router, d deps.Deps) {
	if !d.EnableHealth {
		return
	}
	r.Get("/health", handlers.Health(d))
}
