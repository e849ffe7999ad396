package api

import (
	"github.com/MrSnakeDoc/stash/internal/domain"
)

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Ping is the outcome of an unauthenticated liveness call.
type Ping struct {
	URL    string
	Status int
	Body   string
}

type meResponse struct {
	User *domain.User `json:"user"`
}

type bookmarksResponse struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
}

type createBookmarkRequest struct {
	URL string `json:"url"`
}

// errorBody is what the backend sends with non-2xx responses.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
