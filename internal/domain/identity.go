package domain

import "time"

// Identity is the authenticated principal whose bookmarks are visible.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// IsZero reports whether no identity is set.
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// Session binds an identity to one sign-in.
// It is established once per sign-in and torn down on logout or expiry.
type Session struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credential is the password hash guarding an identity.
type Credential struct {
	IdentityID string    `json:"identity_id"`
	Hash       []byte    `json:"hash"`
	CreatedAt  time.Time `json:"created_at"`
}
