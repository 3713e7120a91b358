package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

func (s *Store) ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, url, created_at
		FROM bookmarks
		WHERE user_id = ?
		ORDER BY created_at DESC, seq DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []domain.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (s *Store) InsertBookmark(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	b := domain.Bookmark{
		ID:        ulid.Make().String(),
		Title:     nb.Title,
		URL:       nb.URL,
		UserID:    nb.UserID,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, user_id, title, url, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Title, b.URL, b.CreatedAt.UnixMicro())
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to insert bookmark: %w", err)
	}

	s.hub.Publish(domain.Inserted{Bookmark: b})
	return b, nil
}

func (s *Store) UpdateBookmark(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		UPDATE bookmarks SET title = ?, url = ?
		WHERE id = ?
		RETURNING id, user_id, title, url, created_at`,
		b.Title, b.URL, b.ID)

	updated, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bookmark{}, fmt.Errorf("bookmark %s: %w", b.ID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to update bookmark: %w", err)
	}

	s.hub.Publish(domain.Updated{Bookmark: updated})
	return updated, nil
}

func (s *Store) DeleteBookmark(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.hub.Publish(domain.Deleted{ID: id})
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row scanner) (domain.Bookmark, error) {
	var (
		b       domain.Bookmark
		created int64
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &created); err != nil {
		return domain.Bookmark{}, err
	}
	b.CreatedAt = time.UnixMicro(created).UTC()
	return b, nil
}
