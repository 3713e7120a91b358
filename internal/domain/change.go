package domain

// Change is a notification delivered by a ChangeFeed.
// It is one of Inserted, Updated or Deleted.
type Change interface {
	change()
}

// Inserted carries the full record of a new row.
type Inserted struct {
	Bookmark Bookmark
}

// Updated carries the full record of a modified row.
type Updated struct {
	Bookmark Bookmark
}

// Deleted carries only the id of a removed row.
// Delete notifications are not scoped to an identity.
type Deleted struct {
	ID string
}

func (Inserted) change() {}
func (Updated) change()  {}
func (Deleted) change()  {}

// ChangeHandler receives changes from a subscription.
type ChangeHandler func(Change)
