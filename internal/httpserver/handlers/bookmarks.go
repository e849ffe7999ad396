package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

type bookmarksResponse struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
}

type createBookmarkRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

// ListBookmarks returns the caller's bookmarks, newest first.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := mw.UserID(r.Context())
		utils.WriteJSON(w, http.StatusOK, bookmarksResponse{
			Bookmarks: d.MemoryIndex.ListBookmarks(userID),
		})
	}
}

// CreateBookmark stores a URL for the caller. Title and favicon are derived
// from the URL; summaries are produced elsewhere and left empty here.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookmarkRequest
		if err := decodeBody(w, r, &req); err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			utils.WriteError(w, http.StatusBadRequest, "URL is required")
			return
		}
		if err := domain.Validator().Struct(req); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "URL must be a valid http or https address")
			return
		}

		u, err := url.Parse(req.URL)
		if err != nil || u.Host == "" {
			utils.WriteError(w, http.StatusBadRequest, "URL must be a valid http or https address")
			return
		}

		userID, _ := mw.UserID(r.Context())
		b := d.MemoryIndex.AddBookmark(userID, domain.Bookmark{
			URL:     req.URL,
			Title:   u.Hostname(),
			Favicon: u.Scheme + "://" + u.Host + "/favicon.ico",
		})

		d.Logger.Debug("bookmark created",
			logger.Int64("user_id", userID),
			logger.Int64("bookmark_id", b.ID))
		utils.WriteJSON(w, http.StatusCreated, b)
	}
}

// DeleteBookmark removes one of the caller's bookmarks.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			utils.WriteError(w, http.StatusBadRequest, "Invalid bookmark id")
			return
		}

		userID, _ := mw.UserID(r.Context())
		if !d.MemoryIndex.DeleteBookmark(userID, id) {
			utils.WriteError(w, http.StatusNotFound, "Bookmark not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
