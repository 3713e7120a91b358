package domain

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultScheme is prefixed to URLs submitted without a scheme.
const DefaultScheme = "https://"

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// ErrUnsupportedURL is returned for a link that is not an http or https URL.
var ErrUnsupportedURL = errors.New("only http and https links are supported")

// Draft holds the creation form's input fields.
type Draft struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Complete reports whether both fields carry a value.
func (d *Draft) Complete() bool {
	return strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.URL) != ""
}

// Reset clears both fields.
func (d *Draft) Reset() {
	d.Title = ""
	d.URL = ""
}

// ToNewBookmark builds the insert payload for userID, normalizing the title
// and the URL.
func (d *Draft) ToNewBookmark(userID string) NewBookmark {
	return NewBookmark{
		Title:  NormalizeTitle(d.Title),
		URL:    NormalizeURL(d.URL),
		UserID: userID,
	}
}

// NormalizeTitle trims surrounding whitespace and returns the NFC form.
func NormalizeTitle(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}

// NormalizeURL trims raw and prefixes DefaultScheme when it carries no
// "<scheme>://" prefix.
// Examples:
//   - "go.dev"             -> "https://go.dev"
//   - "http://example.com" -> "http://example.com"
//   - "httpbin.org"        -> "https://httpbin.org"
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if schemeRe.MatchString(u) {
		return u
	}
	return DefaultScheme + u
}

// IsWebURL reports whether raw is an absolute http or https URL with a host.
// Only such links are stored and rendered.
func IsWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	}
	return false
}
