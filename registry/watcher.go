package registry

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/atlasview/atlas/errors"
)

// ManifestWatcher reloads the registry when the local manifest file
// changes. URL-backed manifests are not watchable; callers should skip
// construction for those.
type ManifestWatcher struct {
	registry       *Registry
	manifestPath   string
	watcher        *fsnotify.Watcher
	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	logger         *zap.SugaredLogger
}

// NewManifestWatcher creates a watcher over the given manifest path.
func NewManifestWatcher(reg *Registry, manifestPath string, debounce time.Duration, logger *zap.SugaredLogger) (*ManifestWatcher, error) {
	if manifestPath == "" {
		return nil, errors.New("manifest path required for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	// Watch the manifest file itself when present; otherwise the parent
	// directory so creation is observed.
	if err := watcher.Add(manifestPath); err != nil {
		if dirErr := watcher.Add(parentDir(manifestPath)); dirErr != nil {
			watcher.Close()
			return nil, errors.Wrapf(dirErr, "failed to watch manifest %s", manifestPath)
		}
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &ManifestWatcher{
		registry:       reg,
		manifestPath:   manifestPath,
		watcher:        watcher,
		debouncePeriod: debounce,
		logger:         logger,
	}, nil
}

// Start begins watching. The context bounds the watch loop and any
// reloads it triggers.
func (mw *ManifestWatcher) Start(ctx context.Context) {
	go mw.watchLoop(ctx)
}

func (mw *ManifestWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-mw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Remove == fsnotify.Remove {
				mw.logger.Infow("Manifest change detected",
					"file", event.Name,
					"op", event.Op.String())
				mw.scheduleReload(ctx)
			}

		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return
			}
			mw.logger.Warnw("Manifest watcher error",
				"error", err)
		}
	}
}

// scheduleReload debounces rapid manifest writes into one reload.
func (mw *ManifestWatcher) scheduleReload(ctx context.Context) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if mw.debounceTimer != nil {
		mw.debounceTimer.Stop()
	}

	mw.debounceTimer = time.AfterFunc(mw.debouncePeriod, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := mw.registry.Load(ctx); err != nil {
			mw.logger.Errorw("Manifest-triggered reload failed",
				"error", err)
		}
	})
}

// Stop stops watching for manifest changes.
func (mw *ManifestWatcher) Stop() error {
	mw.mu.Lock()
	if mw.debounceTimer != nil {
		mw.debounceTimer.Stop()
	}
	mw.mu.Unlock()
	return mw.watcher.Close()
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			if i == 0 {
				return "/"
			}
			return path[:i]
		}
	}
	return "."
}
