// Package view is the presentation-facing facade over one dashboard
// activation: it resolves the session, owns the reconciliation layer and
// the creation draft, and forwards user intents.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/reconcile"
)

// ErrUnauthenticated is returned by Activate when no session backs the token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Gate is the part of the session gate a view needs.
type Gate interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
	Logout(ctx context.Context, token string) error
}

// View is one activation of the dashboard.
type View struct {
	gate    Gate
	store   domain.BookmarkStore
	feed    domain.ChangeFeed
	tracker *Tracker
	logger  logger.Logger

	mu       sync.Mutex
	token    string
	identity domain.Identity
	layer    *reconcile.Layer
	draft    domain.Draft
	// deactivated is set by the first Deactivate. A deactivated view
	// cannot be activated again.
	deactivated bool
}

// New builds an inactive view. tracker may be nil.
func New(gate Gate, store domain.BookmarkStore, feed domain.ChangeFeed, tracker *Tracker, log logger.Logger) *View {
	return &View{
		gate:    gate,
		store:   store,
		feed:    feed,
		tracker: tracker,
		logger:  log,
	}
}

// Activate resolves token and starts a fresh reconciliation layer for the
// identity behind it.
//
// A subscription failure fails the activation and releases everything. A
// fetch failure leaves the view active in the Loading state with the error
// set; Refresh retries it.
func (v *View) Activate(ctx context.Context, token string) (domain.Identity, error) {
	ident, err := v.gate.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return domain.Identity{}, ErrUnauthenticated
		}
		return domain.Identity{}, fmt.Errorf("resolve session: %w", err)
	}

	layer := reconcile.New(v.store, v.feed, v.logger.With(logger.String("user_id", ident.ID)))

	v.mu.Lock()
	switch {
	case v.deactivated:
		v.mu.Unlock()
		return domain.Identity{}, reconcile.ErrTornDown
	case v.layer != nil:
		v.mu.Unlock()
		return domain.Identity{}, reconcile.ErrAlreadyActivated
	}
	v.token = token
	v.identity = ident
	v.layer = layer
	if v.tracker != nil {
		v.tracker.add()
	}
	v.mu.Unlock()

	if err := layer.Activate(ctx, ident); err != nil {
		if errors.Is(err, reconcile.ErrSubscribe) {
			v.Deactivate()
		}
		return ident, err
	}
	return ident, nil
}

// Refresh refetches the collection. It is the retry path after a failed load.
func (v *View) Refresh(ctx context.Context) error {
	layer, err := v.active()
	if err != nil {
		return err
	}
	return layer.Initialize(ctx)
}

// Submit fills the draft and inserts it. The draft is cleared only when the
// insert succeeds.
func (v *View) Submit(ctx context.Context, title, url string) (domain.Bookmark, error) {
	layer, err := v.active()
	if err != nil {
		return domain.Bookmark{}, err
	}

	v.mu.Lock()
	v.draft = domain.Draft{Title: title, URL: url}
	d := v.draft
	v.mu.Unlock()

	created, err := layer.ApplyLocalInsert(ctx, &d)

	v.mu.Lock()
	v.draft = d
	v.mu.Unlock()
	return created, err
}

// Delete removes a bookmark.
func (v *View) Delete(ctx context.Context, id string) error {
	layer, err := v.active()
	if err != nil {
		return err
	}
	return layer.ApplyLocalDelete(ctx, id)
}

// Logout tears the view down and ends the session.
func (v *View) Logout(ctx context.Context) error {
	v.mu.Lock()
	token := v.token
	v.mu.Unlock()

	v.Deactivate()
	return v.gate.Logout(ctx, token)
}

// Deactivate releases the layer and retires the view. Safe to call more
// than once and before Activate.
func (v *View) Deactivate() {
	v.mu.Lock()
	if v.deactivated {
		v.mu.Unlock()
		return
	}
	v.deactivated = true
	layer := v.layer
	if layer != nil && v.tracker != nil {
		v.tracker.remove()
	}
	v.mu.Unlock()

	if layer != nil {
		layer.Teardown()
	}
}

// Snapshot returns the collection to render, or nil while loading.
func (v *View) Snapshot() []domain.Bookmark {
	if layer := v.current(); layer != nil {
		return layer.Snapshot()
	}
	return nil
}

// Draft returns the creation form's current fields.
func (v *View) Draft() domain.Draft {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// Identity returns the identity resolved by Activate.
func (v *View) Identity() domain.Identity {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.identity
}

// State reports the layer state.
func (v *View) State() reconcile.State {
	if layer := v.current(); layer != nil {
		return layer.State()
	}
	return reconcile.StateUninitialized
}

// Err returns the last load error, if the view is still loading.
func (v *View) Err() error {
	if layer := v.current(); layer != nil {
		return layer.Err()
	}
	return nil
}

// Changes signals whenever the collection changes. Nil before Activate.
func (v *View) Changes() <-chan struct{} {
	if layer := v.current(); layer != nil {
		return layer.Changes()
	}
	return nil
}

func (v *View) current() *reconcile.Layer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layer
}

func (v *View) active() (*reconcile.Layer, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.layer != nil:
		return v.layer, nil
	case v.deactivated:
		return nil, reconcile.ErrTornDown
	}
	return nil, reconcile.ErrNotActivated
}
