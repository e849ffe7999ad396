package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

// Scope decides where a registrar's routes are mounted.
type Scope int

const (
	// ScopeRoot routes live at the server root (liveness, admin).
	ScopeRoot Scope = iota
	// ScopeAPI routes live under the configured API prefix.
	ScopeAPI
)

type entry struct {
	scope Scope
	reg   Registrar
	mws   []Middleware
}

var registry []entry

// Register a root-scoped registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{scope: ScopeRoot, reg: reg, mws: mws})
}

// RegisterAPI registers routes mounted under the API prefix.
func RegisterAPI(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{scope: ScopeAPI, reg: reg, mws: mws})
}

// RegisterAll mounts every registrar. Called once from server.New().
func RegisterAll(r chi.Router, d deps.Deps) {
	mount(r, d, ScopeRoot)

	if d.APIPrefix == "" {
		mount(r, d, ScopeAPI)
		return
	}
	r.Route(d.APIPrefix, func(api chi.Router) {
		mount(api, d, ScopeAPI)
	})
}

func mount(r chi.Router, d deps.Deps, scope Scope) {
	for _, e := range registry {
		if e.scope != scope {
			continue
		}
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		e.reg(r.With(e.mws...), d)
	}
}
