package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

type subscription struct {
	pubsub *redis.PubSub
	once   sync.Once
}

// Subscribe listens on the user's change channel and the shared delete channel.
// The handler runs on a dedicated goroutine, one change at a time.
func (s *Store) Subscribe(ctx context.Context, userID string, handler domain.ChangeHandler) (domain.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, UserChangesChannel(userID), ChannelDeletes)

	// Wait for both confirmations so no change published after Subscribe
	// returns can be missed.
	for i := 0; i < 2; i++ {
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
		}
	}

	sub := &subscription{pubsub: pubsub}
	go s.dispatch(sub, userID, handler)

	s.logger.Debug("subscribed to changes", logger.String("user_id", userID))
	return sub, nil
}

func (s *Store) dispatch(sub *subscription, userID string, handler domain.ChangeHandler) {
	for msg := range sub.pubsub.Channel() {
		ch, err := feed.Decode([]byte(msg.Payload))
		if err != nil {
			s.logger.Warn("dropping change frame",
				logger.String("channel", msg.Channel),
				logger.Error(err))
			continue
		}
		if owner, scoped := ownerOf(ch); scoped && owner != userID {
			continue
		}
		handler(ch)
	}
}

// Unsubscribe closes the Pub/Sub connection. Safe to call more than once.
func (sub *subscription) Unsubscribe() error {
	var err error
	sub.once.Do(func() {
		err = sub.pubsub.Close()
	})
	return err
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
