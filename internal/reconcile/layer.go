// Package reconcile keeps one view's bookmark collection consistent while
// three independent inputs mutate it: the bulk fetch, local optimistic
// intents and remote change events.
//
// A Layer lives for exactly one activation:
//
//	Uninitialized -> Loading -> Ready -> TornDown
//
// Once Ready, later fetches (resync after a failed delete) refresh the
// collection in place without going back to Loading.
//
// Every mutation is serialized under the layer's mutex; store round trips
// run outside of it. Merges are guarded by "already present" and "absent"
// checks on the ID, so a local insert and its realtime echo, or a local
// delete and a remote delete, converge to the same collection in any order.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// State is the lifecycle position of a Layer.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

var (
	// ErrIncompleteDraft is returned when a draft lacks a title or a URL.
	// Nothing is sent to the store in that case.
	ErrIncompleteDraft = errors.New("title and url are required")
	// ErrTornDown is returned by intents issued after Teardown.
	ErrTornDown = errors.New("layer torn down")
	// ErrNotActivated is returned by intents issued before Activate.
	ErrNotActivated = errors.New("layer not activated")
	// ErrAlreadyActivated is returned when Activate is called twice.
	ErrAlreadyActivated = errors.New("layer already activated")
	// ErrSubscribe wraps a change feed subscription failure during Activate.
	ErrSubscribe = errors.New("subscribe to changes")
)

// Layer owns the in-memory bookmark collection of one activation.
type Layer struct {
	store  domain.BookmarkStore
	feed   domain.ChangeFeed
	logger logger.Logger

	mu       sync.Mutex
	identity domain.Identity
	state    State
	items    Collection
	loadErr  error
	sub      domain.Subscription

	// fetching counts in-flight fetches; while > 0 every applied change is
	// journaled and replayed over the fetched rows.
	fetching int
	journal  []domain.Change

	changed  chan struct{}
	done     chan struct{}
	teardown sync.Once
}

// New creates a layer bound to a store and its change feed.
func New(store domain.BookmarkStore, feed domain.ChangeFeed, log logger.Logger) *Layer {
	return &Layer{
		store:   store,
		feed:    feed,
		logger:  log,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Activate subscribes to the change feed for identity and runs the initial fetch.
//
// The subscription is established before the fetch so no change is lost in
// between; changes that race the fetch are replayed over its result.
func (l *Layer) Activate(ctx context.Context, identity domain.Identity) error {
	if identity.IsZero() {
		return errors.New("activate: empty identity")
	}

	l.mu.Lock()
	switch l.state {
	case StateTornDown:
		l.mu.Unlock()
		return ErrTornDown
	case StateUninitialized:
	default:
		l.mu.Unlock()
		return ErrAlreadyActivated
	}
	l.identity = identity
	l.state = StateLoading
	l.mu.Unlock()

	l.logger.Debug("activating reconciliation layer",
		logger.String("user_id", identity.ID))

	sub, err := l.feed.Subscribe(ctx, identity.ID, l.Apply)
	if err != nil {
		l.mu.Lock()
		l.loadErr = err
		l.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}

	l.mu.Lock()
	if l.state == StateTornDown {
		// Torn down while subscribing: Teardown saw no subscription to release.
		l.mu.Unlock()
		if err := sub.Unsubscribe(); err != nil {
			l.logger.Warn("failed to release subscription", logger.Error(err))
		}
		return ErrTornDown
	}
	l.sub = sub
	l.mu.Unlock()

	return l.Initialize(ctx)
}

// Initialize fetches every row owned by the active identity and replaces the
// collection wholesale.
//
// On failure during Loading the layer stays in Loading with Err set and shows
// no collection; calling Initialize again retries. On failure once Ready the
// current collection is kept.
func (l *Layer) Initialize(ctx context.Context) error {
	l.mu.Lock()
	if err := l.activeLocked(); err != nil {
		l.mu.Unlock()
		return err
	}
	userID := l.identity.ID
	l.fetching++
	l.mu.Unlock()

	rows, err := l.store.ListBookmarks(ctx, userID)

	l.mu.Lock()
	l.fetching--
	journal := l.journal
	if l.fetching == 0 {
		l.journal = nil
	}
	if l.state == StateTornDown {
		l.mu.Unlock()
		return ErrTornDown
	}
	if err != nil {
		if l.state == StateLoading {
			l.loadErr = err
		}
		l.mu.Unlock()
		l.logger.Warn("failed to fetch bookmarks",
			logger.String("user_id", userID),
			logger.Error(err))
		return fmt.Errorf("fetch bookmarks: %w", err)
	}

	owned := make([]domain.Bookmark, 0, len(rows))
	for _, b := range rows {
		if b.OwnedBy(userID) {
			owned = append(owned, b)
		}
	}
	if dropped := len(rows) - len(owned); dropped > 0 {
		l.logger.Warn("dropped rows owned by another identity",
			logger.String("user_id", userID),
			logger.Int("count", dropped))
	}

	l.items.Replace(owned)
	for _, ch := range journal {
		l.applyLocked(ch)
	}
	l.state = StateReady
	l.loadErr = nil
	count := l.items.Len()
	l.mu.Unlock()

	l.logger.Debug("bookmarks loaded",
		logger.String("user_id", userID),
		logger.Int("count", count),
		logger.Int("replayed", len(journal)))
	l.signal()
	return nil
}

// ApplyLocalInsert submits draft for the active identity.
//
// On success the canonical record is merged (unless its realtime echo got
// there first) and the draft is reset. On store failure the collection and the
// draft are left as they were so the user can retry.
func (l *Layer) ApplyLocalInsert(ctx context.Context, draft *domain.Draft) (domain.Bookmark, error) {
	if !draft.Complete() {
		return domain.Bookmark{}, ErrIncompleteDraft
	}
	if !domain.IsWebURL(domain.NormalizeURL(draft.URL)) {
		return domain.Bookmark{}, domain.ErrUnsupportedURL
	}

	l.mu.Lock()
	if err := l.activeLocked(); err != nil {
		l.mu.Unlock()
		return domain.Bookmark{}, err
	}
	userID := l.identity.ID
	l.mu.Unlock()

	created, err := l.store.InsertBookmark(ctx, draft.ToNewBookmark(userID))
	if err != nil {
		l.logger.Warn("failed to insert bookmark",
			logger.String("user_id", userID),
			logger.Error(err))
		return domain.Bookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}

	merged := l.mutate(domain.Inserted{Bookmark: created})
	draft.Reset()

	l.logger.Debug("bookmark inserted",
		logger.String("id", created.ID),
		logger.Bool("merged", merged))
	return created, nil
}

// ApplyLocalDelete removes id from the collection immediately, then deletes it
// from the store. If the store refuses, the layer resyncs with a full fetch,
// which restores the record when the delete did not take effect.
//
// The delete error itself is not returned; only a failed resync is.
func (l *Layer) ApplyLocalDelete(ctx context.Context, id string) error {
	l.mu.Lock()
	if err := l.activeLocked(); err != nil {
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	l.mutate(domain.Deleted{ID: id})

	if err := l.store.DeleteBookmark(ctx, id); err != nil {
		l.logger.Warn("failed to delete bookmark, resyncing",
			logger.String("id", id),
			logger.Error(err))

		l.mu.Lock()
		l.forgetDeleteLocked(id)
		l.mu.Unlock()

		if err := l.Initialize(ctx); err != nil {
			return fmt.Errorf("resync after failed delete: %w", err)
		}
	}
	return nil
}

// Apply dispatches a change from the feed. It is the subscription handler.
func (l *Layer) Apply(ch domain.Change) {
	switch c := ch.(type) {
	case domain.Inserted:
		l.OnRemoteInsert(c.Bookmark)
	case domain.Updated:
		l.OnRemoteUpdate(c.Bookmark)
	case domain.Deleted:
		l.OnRemoteDelete(c.ID)
	default:
		l.logger.Warn("ignoring unknown change", logger.String("type", fmt.Sprintf("%T", ch)))
	}
}

// OnRemoteInsert merges b unless a record with its ID is present.
func (l *Layer) OnRemoteInsert(b domain.Bookmark) {
	l.mutate(domain.Inserted{Bookmark: b})
}

// OnRemoteUpdate replaces the record sharing b.ID; absent IDs are ignored.
func (l *Layer) OnRemoteUpdate(b domain.Bookmark) {
	l.mutate(domain.Updated{Bookmark: b})
}

// OnRemoteDelete removes the record with id. It is idempotent and needs
// nothing but the ID: the collection only ever holds the active identity's rows.
func (l *Layer) OnRemoteDelete(id string) {
	if id == "" {
		return
	}
	l.mutate(domain.Deleted{ID: id})
}

// Teardown releases the subscription. Only the first call has an effect;
// calling it on a layer that never subscribed is safe.
func (l *Layer) Teardown() {
	l.teardown.Do(func() {
		l.mu.Lock()
		sub := l.sub
		l.sub = nil
		l.state = StateTornDown
		l.items.Replace(nil)
		l.journal = nil
		userID := l.identity.ID
		l.mu.Unlock()

		close(l.done)

		if sub == nil {
			return
		}
		if err := sub.Unsubscribe(); err != nil {
			l.logger.Warn("failed to release subscription",
				logger.String("user_id", userID),
				logger.Error(err))
			return
		}
		l.logger.Debug("subscription released", logger.String("user_id", userID))
	})
}

// Snapshot returns a copy of the collection, or nil until the first fetch succeeds.
func (l *Layer) Snapshot() []domain.Bookmark {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateReady {
		return nil
	}
	return l.items.Snapshot()
}

// State returns the lifecycle position.
func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the last fetch error observed while Loading.
func (l *Layer) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadErr
}

// Identity returns the active identity.
func (l *Layer) Identity() domain.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.identity
}

// Changes signals that the collection changed. Signals coalesce: readers
// should take a fresh Snapshot on each receive.
func (l *Layer) Changes() <-chan struct{} {
	return l.changed
}

// Done is closed by Teardown.
func (l *Layer) Done() <-chan struct{} {
	return l.done
}

// mutate applies ch under the lock and signals on change.
func (l *Layer) mutate(ch domain.Change) bool {
	l.mu.Lock()
	if l.state == StateUninitialized || l.state == StateTornDown {
		l.mu.Unlock()
		return false
	}
	if owner, ok := ownerOf(ch); ok && owner != l.identity.ID {
		userID := l.identity.ID
		l.mu.Unlock()
		l.logger.Warn("rejected change owned by another identity",
			logger.String("user_id", userID),
			logger.String("owner_id", owner))
		return false
	}
	if l.fetching > 0 {
		l.journal = append(l.journal, ch)
	}
	changed := l.applyLocked(ch)
	l.mu.Unlock()

	if changed {
		l.signal()
	}
	return changed
}

func (l *Layer) applyLocked(ch domain.Change) bool {
	switch c := ch.(type) {
	case domain.Inserted:
		return l.items.Insert(c.Bookmark)
	case domain.Updated:
		return l.items.Update(c.Bookmark)
	case domain.Deleted:
		return l.items.Remove(c.ID)
	}
	return false
}

// forgetDeleteLocked drops journaled deletes of id so a resync can restore it.
func (l *Layer) forgetDeleteLocked(id string) {
	kept := l.journal[:0]
	for _, ch := range l.journal {
		if d, ok := ch.(domain.Deleted); ok && d.ID == id {
			continue
		}
		kept = append(kept, ch)
	}
	l.journal = kept
}

func (l *Layer) activeLocked() error {
	switch l.state {
	case StateUninitialized:
		return ErrNotActivated
	case StateTornDown:
		return ErrTornDown
	}
	return nil
}

func (l *Layer) signal() {
	select {
	case l.changed <- struct{}{}:
	default:
	}
}

// ownerOf returns the owner carried by inserts and updates.
func ownerOf(ch domain.Change) (string, bool) {
	switch c := ch.(type) {
	case domain.Inserted:
		return c.Bookmark.UserID, true
	case domain.Updated:
		return c.Bookmark.UserID, true
	}
	return "", false
}
