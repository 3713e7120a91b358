package domain

import "time"

// Bookmark is a single saved URL owned by one identity.
//
// Records are created by the store (which assigns ID and CreatedAt) and are
// only ever mutated locally through change events.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the server-assigned unique identifier (ULID).
	ID string `json:"id"`

	// UserID is the identity that owns the bookmark.
	UserID string `json:"user_id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title is the user-facing label.
	// Example: "Go Blog"
	Title string `json:"title"`

	// URL always carries a scheme.
	// Example: https://go.dev/blog
	URL string `json:"url"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is assigned by the store on insert.
	CreatedAt time.Time `json:"created_at"`
}

// NewBookmark is the payload of an insert, before the store assigns
// an ID and a timestamp.
type NewBookmark struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

// OwnedBy reports whether the bookmark belongs to userID.
func (b Bookmark) OwnedBy(userID string) bool {
	return b.UserID == userID
}

// Newer reports whether b sorts before other in newest-first order.
func (b Bookmark) Newer(other Bookmark) bool {
	return b.CreatedAt.After(other.CreatedAt)
}
