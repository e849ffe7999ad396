package domain

import (
	"net/url"
	"time"
)

// Bookmark is a saved link as returned by the backend.
// IDs are always server-assigned; the client never invents one.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (server-assigned)
	// ─────────────────────────────

	// ID is unique per backend.
	ID int64 `json:"id"`

	// URL is the link the user submitted.
	URL string `json:"url"`

	// ─────────────────────────────
	// Metadata fetched by the backend
	// ─────────────────────────────

	// Title of the page, may be empty.
	Title string `json:"title,omitempty"`

	// Favicon is an absolute URL to the page icon, may be empty.
	Favicon string `json:"favicon,omitempty"`

	// Summary is the generated page summary, may be empty.
	Summary string `json:"summary,omitempty"`

	// CreatedAt is set by the backend on creation.
	CreatedAt time.Time `json:"created_at"`
}

// DisplayTitle returns the title, or the URL hostname when the backend
// could not fetch one. Unparsable URLs are returned as-is.
func (b Bookmark) DisplayTitle() string {
	if b.Title != "" {
		return b.Title
	}
	return Hostname(b.URL)
}

// Hostname extracts the host of raw, falling back to raw itself.
func Hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
