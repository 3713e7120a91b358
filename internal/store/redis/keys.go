package redis

import "fmt"

const (
	// KeyPrefixBookmark is the prefix for bookmark rows
	KeyPrefixBookmark = "smartmarks:bookmark:"
	// KeyPrefixSession is the prefix for session rows
	KeyPrefixSession = "smartmarks:session:"
	// KeyPrefixCredential is the prefix for password hashes, keyed by identity
	KeyPrefixCredential = "smartmarks:credential:"
	// ChannelDeletes carries delete notifications for every user
	ChannelDeletes = "smartmarks:changes:deletes"
)

// BookmarkKey returns the Redis key for a bookmark
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// UserBookmarksKey returns the sorted set of a user's bookmark IDs, scored by creation time
func UserBookmarksKey(userID string) string {
	return fmt.Sprintf("smartmarks:user:%s:bookmarks", userID)
}

// SessionKey returns the Redis key for a session
func SessionKey(id string) string {
	return KeyPrefixSession + id
}

// CredentialKey returns the Redis key for an identity's credential
func CredentialKey(identityID string) string {
	return KeyPrefixCredential + identityID
}

// UserChangesChannel returns the channel carrying a user's inserts and updates
func UserChangesChannel(userID string) string {
	return "smartmarks:changes:user:" + userID
}

// ExtractSessionID extracts the session ID from a Redis key
func ExtractSessionID(key string) (string, error) {
	if len(key) <= len(KeyPrefixSession) {
		return "", fmt.Errorf("invalid session key: %s", key)
	}
	return key[len(KeyPrefixSession):], nil
}
