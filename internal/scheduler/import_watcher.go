package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/smartmarks/internal/importer"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// ImportStatus describes the watcher's last run.
type ImportStatus struct {
	File    string
	LastRun time.Time
	LastErr error
	Result  importer.Result
}

// ImportWatcher re-imports a bookmarks file for one identity: at start, on
// an interval, on a manual trigger and, when watching, on file changes.
type ImportWatcher struct {
	importer      *importer.Importer
	file          string
	userID        string
	logger        logger.Logger
	interval      time.Duration
	watch         bool
	debounce      time.Duration
	manualTrigger chan struct{}
	stopCh        chan struct{}
	stopOnce      sync.Once
	started       atomic.Bool
	done          chan struct{}

	mu     sync.Mutex
	status ImportStatus
}

// NewImportWatcher creates a watcher. A zero interval disables periodic runs.
func NewImportWatcher(
	imp *importer.Importer,
	file string,
	userID string,
	log logger.Logger,
	interval time.Duration,
	watch bool,
	manualTrigger chan struct{},
) *ImportWatcher {
	file = filepath.Clean(file)
	return &ImportWatcher{
		importer:      imp,
		file:          file,
		userID:        userID,
		logger:        log.With(logger.String("file", file)),
		interval:      interval,
		watch:         watch,
		debounce:      DefaultDebounce,
		manualTrigger: manualTrigger,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
		status:        ImportStatus{File: file},
	}
}

// Start imports once, then keeps watching in the background until ctx is
// canceled or Stop is called. A failing first import is logged, not fatal.
func (iw *ImportWatcher) Start(ctx context.Context) error {
	if err := iw.Reload(ctx); err != nil {
		iw.logger.Warn("initial import failed", logger.Error(err))
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
		fw     *fsnotify.Watcher
	)
	if iw.watch {
		var err error
		if fw, err = iw.newFileWatcher(); err != nil {
			iw.logger.Warn("file watching disabled", logger.Error(err))
		} else {
			events, errs = fw.Events, fw.Errors
		}
	}

	iw.started.Store(true)
	go func() {
		defer close(iw.done)
		if fw != nil {
			defer func() { _ = fw.Close() }()
		}

		var tick <-chan time.Time
		if iw.interval > 0 {
			ticker := time.NewTicker(iw.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		var settle <-chan time.Time
		for {
			select {
			case <-tick:
				iw.reloadLogged(ctx)
			case <-iw.manualTrigger:
				iw.logger.Info("manual import triggered")
				iw.reloadLogged(ctx)
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if filepath.Clean(ev.Name) == iw.file && ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					settle = time.After(iw.debounce)
				}
			case <-settle:
				settle = nil
				iw.logger.Info("bookmarks file changed")
				iw.reloadLogged(ctx)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				iw.logger.Warn("file watcher error", logger.Error(err))
			case <-iw.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// newFileWatcher watches the file's directory, since editors and config
// management often replace the file instead of writing it in place.
func (iw *ImportWatcher) newFileWatcher() (*fsnotify.Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(iw.file)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return fw, nil
}

// Stop stops the watcher and waits for its loop to exit.
func (iw *ImportWatcher) Stop() {
	iw.stopOnce.Do(func() { close(iw.stopCh) })
	if iw.started.Load() {
		<-iw.done
	}
}

// Reload imports the file now and records the outcome.
func (iw *ImportWatcher) Reload(ctx context.Context) error {
	res, err := iw.importer.ImportFile(ctx, iw.file, iw.userID)

	iw.mu.Lock()
	iw.status.LastRun = time.Now()
	iw.status.LastErr = err
	iw.status.Result = res
	iw.mu.Unlock()

	return err
}

func (iw *ImportWatcher) reloadLogged(ctx context.Context) {
	if err := iw.Reload(ctx); err != nil {
		iw.logger.Error("failed to import bookmarks", logger.Error(err))
	}
}

// Status returns the outcome of the last run.
func (iw *ImportWatcher) Status() ImportStatus {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	return iw.status
}
