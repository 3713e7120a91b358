package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// DefaultSessionGCInterval is how often expired sessions are swept.
const DefaultSessionGCInterval = time.Hour

// SessionCollector periodically removes expired sessions.
type SessionCollector struct {
	sessions domain.SessionStore
	logger   logger.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSessionCollector creates a new session collector
func NewSessionCollector(sessions domain.SessionStore, log logger.Logger, interval time.Duration) *SessionCollector {
	if interval <= 0 {
		interval = DefaultSessionGCInterval
	}
	return &SessionCollector{
		sessions: sessions,
		logger:   log,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once, then periodically in the background.
func (sc *SessionCollector) Start(ctx context.Context) error {
	if _, err := sc.Collect(ctx); err != nil {
		sc.logger.Warn("initial session sweep failed", logger.Error(err))
	}

	ticker := time.NewTicker(sc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := sc.Collect(ctx); err != nil {
					sc.logger.Error("session sweep failed", logger.Error(err))
				}
			case <-sc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the collector
func (sc *SessionCollector) Stop() {
	sc.stopOnce.Do(func() { close(sc.stopCh) })
}

// Collect removes the sessions expired now.
func (sc *SessionCollector) Collect(ctx context.Context) (int, error) {
	n, err := sc.sessions.SweepSessions(ctx, sc.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		sc.logger.Info("expired sessions removed", logger.Int("count", n))
	} else {
		sc.logger.Debug("no expired sessions")
	}
	return n, nil
}
