package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoSession is returned when no valid session backs a request.
	ErrNoSession = errors.New("no session")
	// ErrExists is returned when creating a row that is already present.
	ErrExists = errors.New("already exists")
)

// BookmarkStore is the row CRUD side of the remote store.
type BookmarkStore interface {
	// ListBookmarks returns the rows owned by userID, newest first.
	ListBookmarks(ctx context.Context, userID string) ([]Bookmark, error)
	// InsertBookmark stores nb and returns the canonical record.
	InsertBookmark(ctx context.Context, nb NewBookmark) (Bookmark, error)
	// UpdateBookmark replaces title and url of an existing row.
	UpdateBookmark(ctx context.Context, b Bookmark) (Bookmark, error)
	// DeleteBookmark removes a row. Deleting an absent row is not an error.
	DeleteBookmark(ctx context.Context, id string) error
}

// ChangeFeed delivers row changes over a persistent connection.
//
// Inserted and Updated changes are filtered to userID. Deleted changes are
// delivered for every identity, since delete notifications only carry the id.
type ChangeFeed interface {
	Subscribe(ctx context.Context, userID string, handler ChangeHandler) (Subscription, error)
}

// Subscription is a live registration on a ChangeFeed.
// Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe() error
}

// SessionStore persists sign-in sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// DeleteSession removes a session. Deleting an absent session is not an error.
	DeleteSession(ctx context.Context, id string) error
	// SweepSessions removes sessions expired at now and returns how many were removed.
	SweepSessions(ctx context.Context, now time.Time) (int, error)
}

// CredentialStore persists the password hash of each identity.
type CredentialStore interface {
	// CreateCredential stores c, or returns ErrExists when the identity
	// already has a credential.
	CreateCredential(ctx context.Context, c *Credential) error
	GetCredential(ctx context.Context, identityID string) (*Credential, error)
}
