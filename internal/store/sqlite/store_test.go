package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "smartmarks.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

type changes struct {
	mu  sync.Mutex
	got []domain.Change
}

func (c *changes) add(ch domain.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, ch)
}

func (c *changes) all() []domain.Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Change(nil), c.got...)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	s.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		b, err := s.InsertBookmark(ctx, domain.NewBookmark{Title: title, URL: "https://" + title + ".dev", UserID: "u1"})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}
	_, err := s.InsertBookmark(ctx, domain.NewBookmark{Title: "x", URL: "https://x.dev", UserID: "u2"})
	require.NoError(t, err)

	list, err := s.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "c", list[0].Title)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC), list[0].CreatedAt)

	empty, err := s.ListBookmarks(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStore_SameTimestampKeepsInsertOrder(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	ctx := context.Background()

	first, err := s.InsertBookmark(ctx, domain.NewBookmark{Title: "1", URL: "https://1.dev", UserID: "u1"})
	require.NoError(t, err)
	second, err := s.InsertBookmark(ctx, domain.NewBookmark{Title: "2", URL: "https://2.dev", UserID: "u1"})
	require.NoError(t, err)

	list, err := s.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestStore_ChangeFeed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var mine, theirs changes
	sub, err := s.Subscribe(ctx, "u1", mine.add)
	require.NoError(t, err)
	_, err = s.Subscribe(ctx, "u2", theirs.add)
	require.NoError(t, err)

	b, err := s.InsertBookmark(ctx, domain.NewBookmark{Title: "Go", URL: "https://go.dev", UserID: "u1"})
	require.NoError(t, err)
	inserted := b

	b.Title = "Go home"
	updated, err := s.UpdateBookmark(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, b.CreatedAt, updated.CreatedAt)

	require.NoError(t, s.DeleteBookmark(ctx, b.ID))
	require.NoError(t, s.DeleteBookmark(ctx, b.ID), "deleting an absent row is not an error")

	require.Eventually(t, func() bool { return len(mine.all()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.Inserted{Bookmark: inserted}, mine.all()[0])
	assert.Equal(t, domain.Updated{Bookmark: updated}, mine.all()[1])
	assert.Equal(t, domain.Deleted{ID: b.ID}, mine.all()[2])

	require.Eventually(t, func() bool { return len(theirs.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.Deleted{ID: b.ID}, theirs.all()[0])

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
}

func TestStore_UpdateMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.UpdateBookmark(context.Background(), domain.Bookmark{ID: "nope", Title: "t", URL: "u"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Sessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	live := &domain.Session{
		ID:        "live",
		Identity:  domain.Identity{ID: "u1", DisplayName: "Alice"},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	stale := &domain.Session{
		ID:        "stale",
		Identity:  domain.Identity{ID: "u2", DisplayName: "Bob"},
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	require.NoError(t, s.CreateSession(ctx, live))
	require.NoError(t, s.CreateSession(ctx, stale))

	got, err := s.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, *live, *got)

	n, err := s.SweepSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetSession(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.DeleteSession(ctx, "live"))
	require.NoError(t, s.DeleteSession(ctx, "live"))
	_, err = s.GetSession(ctx, "live")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_FeedFollowsCommitOrder(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen changes
	_, err := s.Subscribe(ctx, "u1", seen.add)
	require.NoError(t, err)

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := s.InsertBookmark(ctx, domain.NewBookmark{Title: "t", URL: "https://t.dev", UserID: "u1"})
			assert.NoError(t, err)
		}
	}()
	deleted := 0
	go func() {
		defer wg.Done()
		for deleted < rounds {
			list, err := s.ListBookmarks(ctx, "u1")
			if !assert.NoError(t, err) {
				return
			}
			for _, b := range list {
				assert.NoError(t, s.DeleteBookmark(ctx, b.ID))
				deleted++
			}
		}
	}()
	wg.Wait()

	require.Eventually(t, func() bool { return len(seen.all()) == 2*rounds }, 5*time.Second, 5*time.Millisecond)
	live := map[string]bool{}
	for _, ch := range seen.all() {
		switch c := ch.(type) {
		case domain.Inserted:
			live[c.Bookmark.ID] = true
		case domain.Deleted:
			require.True(t, live[c.ID], "delete of %s announced before its insert", c.ID)
			delete(live, c.ID)
		}
	}
	assert.Empty(t, live)
}

func TestStore_Credentials(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.GetCredential(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cred := &domain.Credential{IdentityID: "u1", Hash: []byte("$2a$hash"), CreatedAt: now}
	require.NoError(t, s.CreateCredential(ctx, cred))

	err = s.CreateCredential(ctx, &domain.Credential{IdentityID: "u1", Hash: []byte("other"), CreatedAt: now})
	assert.ErrorIs(t, err, domain.ErrExists)

	got, err := s.GetCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, *cred, *got)
}
