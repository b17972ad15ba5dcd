package config

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/logger"
)

// configDebounce absorbs the burst of events editors emit on save.
const configDebounce = 500 * time.Millisecond

// ownWriteWindow is how long after MarkOwnWrite change events for the
// watched file are ignored. A single Save can surface as several
// filesystem events, so a one-shot flag is not enough.
const ownWriteWindow = time.Second

// ReloadCallback receives the freshly loaded config after a file change.
type ReloadCallback func(*Config) error

// ConfigWatcher reloads the global configuration when the config file
// changes on disk and fans the new config out to registered callbacks.
// Writes made through Save are suppressed so a running host does not
// reload a file it just wrote itself.
type ConfigWatcher struct {
	path     string
	fs       *fsnotify.Watcher
	debounce time.Duration

	mu            sync.Mutex
	callbacks     []ReloadCallback
	timer         *time.Timer
	ownWriteUntil time.Time
}

var (
	globalWatcher   *ConfigWatcher
	globalWatcherMu sync.Mutex
)

// NewConfigWatcher watches the given config file. The parent directory is
// watched rather than the file itself so editors that save by renaming a
// temp file over the original stay observed.
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating config watcher")
	}
	if err := fs.Add(filepath.Dir(configPath)); err != nil {
		fs.Close()
		return nil, errors.Wrapf(err, "watching directory of %s", configPath)
	}

	return &ConfigWatcher{
		path:     configPath,
		fs:       fs,
		debounce: configDebounce,
	}, nil
}

// OnReload registers a callback invoked after every successful reload.
func (cw *ConfigWatcher) OnReload(cb ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, cb)
}

// MarkOwnWrite suppresses change events for the watched file for a short
// window. Save calls this before writing so our own writes don't trigger
// a reload.
func (cw *ConfigWatcher) MarkOwnWrite() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.ownWriteUntil = time.Now().Add(ownWriteWindow)
}

func (cw *ConfigWatcher) suppressOwnWrite() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return time.Now().Before(cw.ownWriteUntil)
}

// Start begins watching in a background goroutine.
func (cw *ConfigWatcher) Start() {
	go cw.watchLoop()
}

func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-cw.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(cw.path) {
				continue
			}
			if isBackupFile(event.Name) {
				continue
			}
			if cw.suppressOwnWrite() {
				logger.Debugw("Ignoring own config write", "file", event.Name)
				continue
			}
			logger.Infow("Config file changed",
				"file", event.Name,
				"op", event.Op.String())
			cw.scheduleReload()

		case err, ok := <-cw.fs.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", "error", err)
		}
	}
}

func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounce, func() {
		if err := cw.reload(); err != nil {
			logger.Errorw("Config reload failed", "error", err)
		}
	})
}

// reload drops the cached config, loads the merged sources fresh, and
// notifies callbacks. A failing callback does not block the others.
func (cw *ConfigWatcher) reload() error {
	Reset()

	cfg, err := Load()
	if err != nil {
		return errors.Wrap(err, "reloading config")
	}

	logger.Infow("Config reloaded", "path", cw.path)

	cw.mu.Lock()
	callbacks := make([]ReloadCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			logger.Warnw("Config reload callback error", "error", err)
		}
	}
	return nil
}

// Stop closes the underlying filesystem watcher.
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()
	return cw.fs.Close()
}

// isBackupFile reports whether the path is a rotating backup written by
// Save (.back1, .back2, .back3).
func isBackupFile(path string) bool {
	return strings.HasPrefix(filepath.Ext(path), ".back")
}

// SetGlobalWatcher publishes the watcher Save consults for own-write
// suppression.
func SetGlobalWatcher(watcher *ConfigWatcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = watcher
}
