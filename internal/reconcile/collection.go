package reconcile

import (
	"slices"
	"sort"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// Collection is an ordered set of bookmarks, unique by ID and sorted by
// CreatedAt descending. Inside a CreatedAt tie, the latest arrival comes first.
//
// Collection is not safe for concurrent use; Layer guards it.
type Collection struct {
	items []domain.Bookmark
}

// Replace discards the current content and loads rows.
// Rows without an ID and repeated IDs are dropped (first occurrence wins).
func (c *Collection) Replace(rows []domain.Bookmark) {
	items := make([]domain.Bookmark, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, b := range rows {
		if b.ID == "" {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		items = append(items, b)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Newer(items[j])
	})
	c.items = items
}

// Insert adds b at its ordered position unless a record with the same ID exists.
// It reports whether the collection changed.
func (c *Collection) Insert(b domain.Bookmark) bool {
	if b.ID == "" || c.index(b.ID) >= 0 {
		return false
	}
	pos := sort.Search(len(c.items), func(i int) bool {
		return !c.items[i].Newer(b)
	})
	c.items = slices.Insert(c.items, pos, b)
	return true
}

// Update replaces the record sharing b.ID. Absent IDs are ignored.
func (c *Collection) Update(b domain.Bookmark) bool {
	i := c.index(b.ID)
	if i < 0 {
		return false
	}
	if c.items[i].CreatedAt.Equal(b.CreatedAt) {
		c.items[i] = b
		return true
	}
	// Timestamp moved: reposition to keep the ordering.
	c.items = slices.Delete(c.items, i, i+1)
	return c.Insert(b)
}

// Remove deletes the record with id. Absent IDs are ignored.
func (c *Collection) Remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	return true
}

// Contains reports whether a record with id is present.
func (c *Collection) Contains(id string) bool {
	return c.index(id) >= 0
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.items)
}

// Snapshot returns a copy safe to hand to readers.
func (c *Collection) Snapshot() []domain.Bookmark {
	out := make([]domain.Bookmark, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection) index(id string) int {
	return slices.IndexFunc(c.items, func(b domain.Bookmark) bool {
		return b.ID == id
	})
}
