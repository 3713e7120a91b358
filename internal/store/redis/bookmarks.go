package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// ListBookmarks returns the user's bookmarks, newest first
func (s *Store) ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	ids, err := s.client.ZRevRange(ctx, UserBookmarksKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	bookmarks := make([]domain.Bookmark, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a row; skip it
			continue
		}
		var b domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			s.logger.Warn("skipping unreadable bookmark",
				logger.String("bookmark_id", ids[i]),
				logger.Error(err))
			continue
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, nil
}

// InsertBookmark stores a new bookmark and announces it on the user's channel
func (s *Store) InsertBookmark(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	now := s.now().UTC()
	b := domain.Bookmark{
		ID:        ulid.Make().String(),
		Title:     nb.Title,
		URL:       nb.URL,
		UserID:    nb.UserID,
		CreatedAt: now,
	}

	data, err := json.Marshal(b)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to marshal bookmark: %w", err)
	}
	frame, err := feed.Encode(domain.Inserted{Bookmark: b})
	if err != nil {
		return domain.Bookmark{}, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BookmarkKey(b.ID), data, 0)
		pipe.ZAdd(ctx, UserBookmarksKey(b.UserID), redis.Z{Score: float64(now.UnixMicro()), Member: b.ID})
		pipe.Publish(ctx, UserChangesChannel(b.UserID), frame)
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to insert bookmark: %w", err)
	}
	return b, nil
}

// UpdateBookmark replaces title and url of an existing bookmark
func (s *Store) UpdateBookmark(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	current, err := s.getBookmark(ctx, b.ID)
	if err != nil {
		return domain.Bookmark{}, err
	}
	current.Title = b.Title
	current.URL = b.URL

	data, err := json.Marshal(current)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to marshal bookmark: %w", err)
	}
	frame, err := feed.Encode(domain.Updated{Bookmark: *current})
	if err != nil {
		return domain.Bookmark{}, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BookmarkKey(current.ID), data, 0)
		pipe.Publish(ctx, UserChangesChannel(current.UserID), frame)
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to update bookmark: %w", err)
	}
	return *current, nil
}

// DeleteBookmark removes a bookmark. Removing an absent bookmark is a no-op.
func (s *Store) DeleteBookmark(ctx context.Context, id string) error {
	current, err := s.getBookmark(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	frame, err := feed.Encode(domain.Deleted{ID: id})
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, BookmarkKey(id))
		pipe.ZRem(ctx, UserBookmarksKey(current.UserID), id)
		pipe.Publish(ctx, ChannelDeletes, frame)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

func (s *Store) getBookmark(ctx context.Context, id string) (*domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	var b domain.Bookmark
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}
	return &b, nil
}
