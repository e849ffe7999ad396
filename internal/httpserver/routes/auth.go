package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
)

func init() { RegisterAPI(registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	limited := r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:        d.AuthBurst,
		RefillPerMin: d.AuthRefillPerMin,
		MaxEntries:   10000,
		TrustProxy:   d.TrustProxy,
		Message:      "Too many authentication attempts, please try again later",
		Logger:       d.Logger,
	}))
	limited.Post("/auth/register", handlers.Register(d))
	limited.Post("/auth/login", handlers.Login(d))

	authed := r.With(mw.RequireBearer(d.Sessions, d.Logger))
	authed.Get("/auth/me", handlers.Me(d))
	authed.Post("/auth/logout", handlers.Logout(d))
}
