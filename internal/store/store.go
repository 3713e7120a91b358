// Package store opens the remote store backend named by a URL.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/redis"
	redisstore "github.com/MrSnakeDoc/smartmarks/internal/store/redis"
	"github.com/MrSnakeDoc/smartmarks/internal/store/sqlite"
)

// Backend is everything the application needs from a store.
type Backend interface {
	domain.BookmarkStore
	domain.ChangeFeed
	domain.SessionStore
	domain.CredentialStore

	Ping(ctx context.Context) error
	Kind() string
	Close() error
}

var (
	_ Backend = (*redisstore.Store)(nil)
	_ Backend = (*sqlite.Store)(nil)
)

// Options configures Open.
type Options struct {
	URL string

	// Redis connection retry policy; ignored by other backends.
	ConnectTimeout time.Duration
	RetryInterval  time.Duration
	MaxWait        time.Duration
	PingTimeout    time.Duration
	WarnThreshold  int
}

// Open connects to the backend selected by the URL scheme:
// redis://, rediss:// or sqlite://<path>.
func Open(ctx context.Context, opts Options, log logger.Logger) (Backend, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "redis", "rediss":
		client, err := redis.New(redis.ConnectOptions{
			URL:            opts.URL,
			ConnectTimeout: opts.ConnectTimeout,
			RetryInterval:  opts.RetryInterval,
			MaxWait:        opts.MaxWait,
			PingTimeout:    opts.PingTimeout,
			WarnThreshold:  opts.WarnThreshold,
		}, log)
		if err != nil {
			return nil, err
		}
		return redisstore.NewStore(client, log), nil

	case "sqlite", "sqlite3", "file":
		path := SQLitePath(u)
		if path == "" {
			return nil, fmt.Errorf("sqlite store url %q has no path", opts.URL)
		}
		return sqlite.Open(ctx, path, log)

	default:
		return nil, fmt.Errorf("unsupported store scheme %q (want redis, rediss or sqlite)", u.Scheme)
	}
}

// SQLitePath extracts the file path from sqlite:///abs/path or sqlite://rel/path.
func SQLitePath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Host + u.Path
}
