// Package sqlite stores bookmarks, sessions and credentials in an embedded SQLite file.
// Changes are announced on an in-process feed.Hub after each commit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS bookmarks (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT    NOT NULL UNIQUE,
	user_id    TEXT    NOT NULL,
	title      TEXT    NOT NULL,
	url        TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bookmarks_user ON bookmarks(user_id, created_at DESC, seq DESC);

CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT    PRIMARY KEY,
	identity_id   TEXT    NOT NULL,
	display_name  TEXT    NOT NULL,
	avatar_url    TEXT    NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	expires_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS credentials (
	identity_id TEXT    PRIMARY KEY,
	hash        BLOB    NOT NULL,
	created_at  INTEGER NOT NULL
);
`

// Store is the SQLite backend.
type Store struct {
	db  *sql.DB
	hub *feed.Hub
	// writeMu orders bookmark writes with their announcements, so
	// subscribers see changes in commit order.
	writeMu sync.Mutex
	logger  logger.Logger
	now     func() time.Time
}

// Open creates the database file if needed and applies the schema.
func Open(ctx context.Context, path string, log logger.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(on)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info("sqlite store ready", logger.String("path", path))
	return &Store{
		db:     db,
		hub:    feed.NewHub(log, feed.DefaultBuffer),
		logger: log,
		now:    time.Now,
	}, nil
}

// Subscribe registers handler on the in-process feed.
func (s *Store) Subscribe(ctx context.Context, userID string, handler domain.ChangeHandler) (domain.Subscription, error) {
	return s.hub.Subscribe(ctx, userID, handler)
}

// Ping checks the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Kind names the backend.
func (s *Store) Kind() string { return "sqlite" }

// Close releases subscriptions, checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	s.hub.Close()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn("failed to checkpoint WAL", logger.Error(err))
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
