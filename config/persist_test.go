package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readUserConfig(t *testing.T) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(UserConfigPath())
	require.NoError(t, err)

	out := make(map[string]interface{})
	require.NoError(t, toml.Unmarshal(data, &out))
	return out
}

func TestSaveKeyWritesUserConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, SaveKey("server.port", int64(8611)))

	cfg := readUserConfig(t)
	server, ok := cfg["server"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(8611), server["port"])
}

func TestSaveMergePreservesSiblings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, SaveKey("server.port", int64(8611)))
	require.NoError(t, SaveKey("server.allowed_origins", []string{"http://localhost:3000"}))

	cfg := readUserConfig(t)
	server, ok := cfg["server"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(8611), server["port"], "earlier key survives a later partial update")
	assert.NotNil(t, server["allowed_origins"])
}

func TestSaveRotatesBackups(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, SaveKey("log.json", true))
	require.NoError(t, SaveKey("log.json", false))

	_, err := os.Stat(UserConfigPath() + ".back1")
	assert.NoError(t, err, "second save backs up the first")
}

func TestSaveMarksOwnWrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	// Seed the config file so the watcher has something to sit next to.
	require.NoError(t, SaveKey("log.json", true))

	cw, err := NewConfigWatcher(UserConfigPath())
	require.NoError(t, err)
	defer cw.Stop()

	SetGlobalWatcher(cw)
	defer SetGlobalWatcher(nil)

	require.NoError(t, SaveKey("log.json", false))
	assert.True(t, cw.suppressOwnWrite(), "Save flags its write for the watcher")
}

func TestSaveTopLevelMerge(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, Save(map[string]interface{}{
		"server": map[string]interface{}{"port": int64(9000)},
	}))
	require.NoError(t, Save(map[string]interface{}{
		"log": map[string]interface{}{"json": true},
	}))

	cfg := readUserConfig(t)
	assert.Contains(t, cfg, "server")
	assert.Contains(t, cfg, "log")

	dir := filepath.Dir(UserConfigPath())
	assert.Equal(t, ".atlas", filepath.Base(dir))
}
