package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.GetServerPort())
	assert.Equal(t, "modules.json", cfg.Registry.ManifestPath)
	assert.True(t, cfg.Registry.WatchManifest)
	assert.Equal(t, 500, cfg.Registry.ReloadDebounceMs)
	assert.Equal(t, 4.0, cfg.Loader.RequestsPerSecond)
	assert.NotEmpty(t, cfg.GetServerAllowedOrigins())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
port = 9191

[registry]
manifest_path = "/srv/atlas/modules.json"
backend_url = "https://backend.example.com/api/tenant/modules"
watch_manifest = false

[loader]
requests_per_second = 1.5
burst = 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.GetServerPort())
	assert.Equal(t, "/srv/atlas/modules.json", cfg.Registry.ManifestPath)
	assert.Equal(t, "https://backend.example.com/api/tenant/modules", cfg.Registry.BackendURL)
	assert.False(t, cfg.Registry.WatchManifest)
	assert.Equal(t, 1.5, cfg.Loader.RequestsPerSecond)
	assert.Equal(t, 1, cfg.Loader.Burst)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestGetServerPort(t *testing.T) {
	tests := []struct {
		name     string
		port     *int
		expected int
	}{
		{"nil port uses default", nil, DefaultServerPort},
		{"zero port uses default", intPtr(0), DefaultServerPort},
		{"negative port uses default", intPtr(-1), DefaultServerPort},
		{"explicit port", intPtr(9999), 9999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{Port: tt.port}}
			assert.Equal(t, tt.expected, cfg.GetServerPort())
		})
	}
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/home/u/.atlas/config.toml.back1"))
	assert.True(t, isBackupFile("config.toml.back3"))
	assert.False(t, isBackupFile("/home/u/.atlas/config.toml"))
	assert.False(t, isBackupFile("modules.json"))
}

func intPtr(i int) *int { return &i }
