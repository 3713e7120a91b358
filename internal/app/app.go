package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/importer"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/scheduler"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
	"github.com/MrSnakeDoc/smartmarks/internal/version"
	"github.com/MrSnakeDoc/smartmarks/internal/view"
)

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	backend  store.Backend
	server   *httpserver.Server
	importer *scheduler.ImportWatcher
	sessions *scheduler.SessionCollector
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config) logger.Logger {
	return logger.NewWithOptions(logger.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.PrettyLog,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
}

// OpenStore connects to the configured store, retrying redis as configured.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Backend, error) {
	log.Info("opening store", logger.String("url", config.RedactURL(cfg.StoreURL)))
	return store.Open(ctx, store.Options{
		URL:            cfg.StoreURL,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
}

// New loads the configuration and connects the store. It fails fast when
// the store is unreachable.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()
	loggerClient := NewLogger(cfg)

	backend, err := OpenStore(ctx, cfg, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	loggerClient.Info("store initialized successfully", logger.String("kind", backend.Kind()))

	gate := session.NewGate(backend, cfg.StoreKey, loggerClient,
		session.WithTTL(cfg.SessionTTL),
		session.WithSignup(cfg.AllowSignup))
	sessions := scheduler.NewSessionCollector(backend, loggerClient, cfg.SessionGCInterval)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Backend:      backend,
		Gate:         gate,
		Views:        view.NewTracker(),
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
		LoginBurst:   cfg.LoginBurst,
		LoginPerMin:  cfg.LoginPerMin,
	}

	// Initialize the import watcher (if an import file is configured)
	var watcher *scheduler.ImportWatcher
	if cfg.ImportFile != "" {
		owner, err := session.IdentityFor(cfg.ImportHandle)
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("invalid import handle: %w", err)
		}
		loggerClient.Info("import file configured, initializing import watcher",
			logger.String("file", cfg.ImportFile),
			logger.String("user_id", owner.ID))

		d.ImportTrigger = make(chan struct{}, 1)
		watcher = scheduler.NewImportWatcher(
			importer.New(backend, loggerClient),
			cfg.ImportFile,
			owner.ID,
			loggerClient,
			cfg.ImportInterval,
			cfg.ImportWatch,
			d.ImportTrigger,
		)
		d.ImportStatus = func() deps.ImportStatus {
			s := watcher.Status()
			return deps.ImportStatus{File: s.File, LastRun: s.LastRun, LastErr: s.LastErr}
		}
	} else {
		loggerClient.Info("import file not configured, import disabled")
	}

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		backend:  backend,
		server:   httpserver.New(cfg.ListenAddr, d),
		importer: watcher,
		sessions: sessions,
	}, nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🚀 Starting smartmarks v%s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Infof("smartmarks %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	// Start session collector
	if err := a.sessions.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session collector: %w", err)
	}
	a.logger.Info("session collector started",
		logger.Duration("interval", a.cfg.SessionGCInterval))

	// Start import watcher (if enabled)
	if a.importer != nil {
		if err := a.importer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start import watcher: %w", err)
		}
		a.logger.Info("import watcher started",
			logger.Duration("interval", a.cfg.ImportInterval),
			logger.Bool("watch", a.cfg.ImportWatch))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	if a.importer != nil {
		a.importer.Stop()
	}
	a.sessions.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to stop server: %w", err))
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Warnf("failed to close store: %v", err)
	} else {
		a.logger.Info("✅ Store closed cleanly")
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ smartmarks stopped cleanly")
	return nil
}
