package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
)

func init() { RegisterAPI(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	authed := r.With(mw.RequireBearer(d.Sessions, d.Logger))
	authed.Get("/bookmarks", handlers.ListBookmarks(d))
	authed.Post("/bookmarks", handlers.CreateBookmark(d))
	authed.Delete("/bookmarks/{id}", handlers.DeleteBookmark(d))
}
