// Package feed delivers bookmark changes to subscribers.
//
// Hub is the in-process ChangeFeed used by backends without a native
// notification channel. It applies the same delivery rules as the remote
// feed: inserts and updates reach the owner's subscriptions only, deletes
// reach every subscription.
package feed

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// DefaultBuffer is the per-subscription queue length.
const DefaultBuffer = 64

// Hub fans changes out to subscriptions. Each subscription has its own
// goroutine, so handlers never run on the publisher's goroutine.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*hubSub
	nextID uint64
	buffer int
	logger logger.Logger
}

type hubSub struct {
	id      uint64
	userID  string
	handler domain.ChangeHandler
	queue   chan domain.Change
	done    chan struct{}
	once    sync.Once
	hub     *Hub
}

// NewHub creates an empty hub. buffer <= 0 uses DefaultBuffer.
func NewHub(log logger.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*hubSub),
		buffer: buffer,
		logger: log,
	}
}

// Subscribe registers handler for userID's changes.
func (h *Hub) Subscribe(ctx context.Context, userID string, handler domain.ChangeHandler) (domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.nextID++
	s := &hubSub{
		id:      h.nextID,
		userID:  userID,
		handler: handler,
		queue:   make(chan domain.Change, h.buffer),
		done:    make(chan struct{}),
		hub:     h,
	}
	h.subs[s.id] = s
	count := len(h.subs)
	h.mu.Unlock()

	go s.run()

	h.logger.Debug("feed subscription added",
		logger.String("user_id", userID),
		logger.Int("subscriptions", count))
	return s, nil
}

// Publish delivers ch to every matching subscription. It blocks while a
// matching subscription's queue is full, until it drains or unsubscribes.
func (h *Hub) Publish(ch domain.Change) {
	owner, scoped := ownerOf(ch)

	h.mu.RLock()
	targets := make([]*hubSub, 0, len(h.subs))
	for _, s := range h.subs {
		if scoped && s.userID != owner {
			continue
		}
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.queue <- ch:
		case <-s.done:
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close releases every subscription.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*hubSub, 0, len(h.subs))
	for _, s := range h.subs {
		all = append(all, s)
	}
	h.mu.RUnlock()

	for _, s := range all {
		_ = s.Unsubscribe()
	}
}

func (s *hubSub) run() {
	for {
		select {
		case ch := <-s.queue:
			s.handler(ch)
		case <-s.done:
			return
		}
	}
}

// Unsubscribe implements domain.Subscription.
func (s *hubSub) Unsubscribe() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
		close(s.done)
	})
	return nil
}

func ownerOf(ch domain.Change) (string, bool) {
	switch c := ch.(type) {
	case domain.Inserted:
		return c.Bookmark.UserID, true
	case domain.Updated:
		return c.Bookmark.UserID, true
	}
	return "", false
}
