package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T) (*ConfigWatcher, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\njson = false\n"), 0644))

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	cw.debounce = 20 * time.Millisecond
	t.Cleanup(func() { cw.Stop() })
	return cw, path
}

func TestConfigWatcherReloadOnChange(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cw, path := newTestWatcher(t)

	reloaded := make(chan *Config, 1)
	cw.OnReload(func(cfg *Config) error {
		select {
		case reloaded <- cfg:
		default:
		}
		return nil
	})
	cw.Start()

	require.NoError(t, os.WriteFile(path, []byte("[log]\njson = true\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.NotNil(t, cfg)
	case <-time.After(3 * time.Second):
		t.Fatal("config change did not trigger a reload")
	}
}

func TestConfigWatcherIgnoresOwnWrite(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cw, path := newTestWatcher(t)

	calls := make(chan struct{}, 4)
	cw.OnReload(func(*Config) error {
		calls <- struct{}{}
		return nil
	})
	cw.Start()

	cw.MarkOwnWrite()
	require.NoError(t, os.WriteFile(path, []byte("[log]\njson = true\n"), 0644))

	select {
	case <-calls:
		t.Fatal("own write must not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestConfigWatcherIgnoresOtherFiles(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cw, path := newTestWatcher(t)

	calls := make(chan struct{}, 4)
	cw.OnReload(func(*Config) error {
		calls <- struct{}{}
		return nil
	})
	cw.Start()

	sibling := filepath.Join(filepath.Dir(path), "notes.txt")
	require.NoError(t, os.WriteFile(sibling, []byte("unrelated"), 0644))

	select {
	case <-calls:
		t.Fatal("sibling file change must not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestOwnWriteWindow(t *testing.T) {
	cw, _ := newTestWatcher(t)

	assert.False(t, cw.suppressOwnWrite())
	cw.MarkOwnWrite()
	assert.True(t, cw.suppressOwnWrite())
	assert.True(t, cw.suppressOwnWrite(), "window outlasts a burst of events")
}

func TestIsBackupFileWatcher(t *testing.T) {
	assert.True(t, isBackupFile("/home/x/.atlas/config.toml.back1"))
	assert.True(t, isBackupFile("config.toml.back3"))
	assert.False(t, isBackupFile("/home/x/.atlas/config.toml"))
	assert.False(t, isBackupFile("backup.toml"))
}
