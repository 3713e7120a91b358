package homepage

import (
	"errors"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// ErrNoBookmarks is returned when a config holds no usable entry.
var ErrNoBookmarks = errors.New("no valid bookmarks found in config")

// Drafts flattens config into normalized drafts, in file order.
// The bookmark name is the title, falling back to abbr. Entries without an
// href are skipped and, when a URL appears twice, the first entry wins.
func Drafts(config BookmarksConfig) ([]domain.Draft, error) {
	var drafts []domain.Draft
	seen := make(map[string]struct{})

	for _, group := range config {
		for _, list := range group {
			for _, entries := range list {
				for name, props := range entries {
					if len(props) == 0 {
						continue
					}
					if d, ok := toDraft(name, props[0]); ok {
						if _, dup := seen[d.URL]; dup {
							continue
						}
						seen[d.URL] = struct{}{}
						drafts = append(drafts, d)
					}
				}
			}
		}
	}

	if len(drafts) == 0 {
		return nil, ErrNoBookmarks
	}
	return drafts, nil
}

func toDraft(name string, e BookmarkEntry) (domain.Draft, bool) {
	title := domain.NormalizeTitle(name)
	if title == "" {
		title = domain.NormalizeTitle(e.Abbr)
	}
	d := domain.Draft{Title: title, URL: domain.NormalizeURL(e.Href)}
	return d, d.Complete() && domain.IsWebURL(d.URL)
}
