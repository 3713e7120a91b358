package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

var errUnavailable = errors.New("store unavailable")

// fakeStore is an in-memory BookmarkStore with failure injection and hooks
// that run before a call returns, to simulate races with the change feed.
type fakeStore struct {
	mu     sync.Mutex
	rows   []domain.Bookmark
	nextID int
	clock  time.Time

	listErr   error
	insertErr error
	deleteErr error

	listCalls   int
	deleteCalls []string

	beforeInsertReturn func(domain.Bookmark)
	beforeDeleteReturn func(id string)
	beforeListReturn   func()
}

func newFakeStore(rows ...domain.Bookmark) *fakeStore {
	return &fakeStore{
		rows:  rows,
		clock: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) ListBookmarks(_ context.Context, userID string) ([]domain.Bookmark, error) {
	s.mu.Lock()
	s.listCalls++
	err := s.listErr
	var out []domain.Bookmark
	for _, b := range s.rows {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	hook := s.beforeListReturn
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fakeStore) InsertBookmark(_ context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	s.mu.Lock()
	if s.insertErr != nil {
		s.mu.Unlock()
		return domain.Bookmark{}, s.insertErr
	}
	s.nextID++
	s.clock = s.clock.Add(time.Minute)
	b := domain.Bookmark{
		ID:        fmt.Sprintf("%d", s.nextID),
		Title:     nb.Title,
		URL:       nb.URL,
		UserID:    nb.UserID,
		CreatedAt: s.clock,
	}
	s.rows = append(s.rows, b)
	hook := s.beforeInsertReturn
	s.mu.Unlock()

	if hook != nil {
		hook(b)
	}
	return b, nil
}

func (s *fakeStore) UpdateBookmark(_ context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == b.ID {
			s.rows[i].Title = b.Title
			s.rows[i].URL = b.URL
			return s.rows[i], nil
		}
	}
	return domain.Bookmark{}, domain.ErrNotFound
}

func (s *fakeStore) DeleteBookmark(_ context.Context, id string) error {
	s.mu.Lock()
	s.deleteCalls = append(s.deleteCalls, id)
	err := s.deleteErr
	if err == nil {
		kept := s.rows[:0]
		for _, b := range s.rows {
			if b.ID != id {
				kept = append(kept, b)
			}
		}
		s.rows = kept
	}
	hook := s.beforeDeleteReturn
	s.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return err
}

func (s *fakeStore) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// fakeFeed records the handler so tests can push changes synchronously.
type fakeFeed struct {
	mu           sync.Mutex
	handler      domain.ChangeHandler
	userID       string
	subscribeErr error
	subs         []*fakeSub
}

type fakeSub struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSub) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

func (s *fakeSub) unsubscribeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (f *fakeFeed) Subscribe(_ context.Context, userID string, h domain.ChangeHandler) (domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.handler = h
	f.userID = userID
	sub := &fakeSub{}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) emit(ch domain.Change) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ch)
	}
}

func bm(id, userID string, createdAt time.Time) domain.Bookmark {
	return domain.Bookmark{
		ID:        id,
		Title:     "title " + id,
		URL:       "https://" + id + ".example.com",
		UserID:    userID,
		CreatedAt: createdAt,
	}
}

func ids(bookmarks []domain.Bookmark) []string {
	out := make([]string, 0, len(bookmarks))
	for _, b := range bookmarks {
		out = append(out, b.ID)
	}
	return out
}
