package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/importer"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

type countingStore struct {
	mu   sync.Mutex
	rows []domain.Bookmark
}

func (s *countingStore) ListBookmarks(_ context.Context, userID string) ([]domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Bookmark
	for _, b := range s.rows {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *countingStore) InsertBookmark(_ context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := domain.Bookmark{ID: nb.URL, UserID: nb.UserID, Title: nb.Title, URL: nb.URL, CreatedAt: time.Now()}
	s.rows = append(s.rows, b)
	return b, nil
}

func (s *countingStore) UpdateBookmark(_ context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == b.ID {
			s.rows[i] = b
			return b, nil
		}
	}
	return domain.Bookmark{}, domain.ErrNotFound
}

func (s *countingStore) DeleteBookmark(context.Context, string) error { return nil }

func (s *countingStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func bookmarksYAML(hrefs ...string) string {
	out := "---\n- Links:\n"
	for i, h := range hrefs {
		out += "    - Link" + string(rune('A'+i)) + ":\n        - href: " + h + "\n"
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func newWatcher(t *testing.T, path string, watch bool, trigger chan struct{}) (*ImportWatcher, *countingStore) {
	t.Helper()
	log := logger.New("error", false)
	st := &countingStore{}
	iw := NewImportWatcher(importer.New(st, log), path, "u1", log, 0, watch, trigger)
	iw.debounce = 10 * time.Millisecond
	return iw, st
}

func TestImportWatcher_ManualTrigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	writeFile(t, path, bookmarksYAML("a.example"))

	trigger := make(chan struct{}, 1)
	iw, st := newWatcher(t, path, false, trigger)

	if err := iw.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer iw.Stop()

	if st.len() != 1 {
		t.Fatalf("rows after start = %d, want 1", st.len())
	}
	status := iw.Status()
	if status.LastErr != nil || status.LastRun.IsZero() || status.Result.Inserted != 1 {
		t.Errorf("status after start = %+v", status)
	}

	writeFile(t, path, bookmarksYAML("a.example", "b.example"))
	trigger <- struct{}{}
	waitFor(t, "manual import", func() bool { return st.len() == 2 })
}

func TestImportWatcher_FileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	writeFile(t, path, bookmarksYAML("a.example"))

	iw, st := newWatcher(t, path, true, nil)
	if err := iw.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer iw.Stop()

	writeFile(t, path, bookmarksYAML("a.example", "b.example", "c.example"))
	waitFor(t, "file change import", func() bool { return st.len() == 3 })
}

func TestImportWatcher_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	iw, st := newWatcher(t, path, false, nil)

	if err := iw.Start(context.Background()); err != nil {
		t.Fatalf("Start should not fail on a missing file: %v", err)
	}
	iw.Stop()
	iw.Stop()

	if st.len() != 0 {
		t.Errorf("rows = %d, want 0", st.len())
	}
	if iw.Status().LastErr == nil {
		t.Error("status should carry the load error")
	}
	if iw.Status().File != path {
		t.Errorf("status file = %q, want %q", iw.Status().File, path)
	}
}

func TestImportWatcher_StopBeforeStart(t *testing.T) {
	iw, _ := newWatcher(t, filepath.Join(t.TempDir(), "x.yaml"), false, nil)
	iw.Stop()
}
