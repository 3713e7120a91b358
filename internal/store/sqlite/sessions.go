package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, identity_id, display_name, avatar_url, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Identity.ID, sess.Identity.DisplayName, sess.Identity.AvatarURL,
		sess.CreatedAt.UnixMicro(), sess.ExpiresAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var (
		sess             domain.Session
		created, expires int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, identity_id, display_name, avatar_url, created_at, expires_at
		FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Identity.ID, &sess.Identity.DisplayName, &sess.Identity.AvatarURL, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.CreatedAt = time.UnixMicro(created).UTC()
	sess.ExpiresAt = time.UnixMicro(expires).UTC()
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) SweepSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
