package config

import (
	"github.com/spf13/viper"
)

// Default file permissions
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})

	// Registry defaults
	v.SetDefault("registry.manifest_path", "modules.json")
	v.SetDefault("registry.backend_url", "")
	v.SetDefault("registry.watch_manifest", true)
	v.SetDefault("registry.reload_debounce_ms", 500) // Coalesce rapid manifest writes
	v.SetDefault("registry.fetch_timeout_seconds", 10)

	// Loader defaults
	v.SetDefault("loader.fetch_timeout_seconds", 15)
	v.SetDefault("loader.requests_per_second", 4.0)
	v.SetDefault("loader.burst", 2)

	// Log defaults
	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to
// environment variables so secrets never land in config files.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("registry.backend_token", "ATLAS_REGISTRY_BACKEND_TOKEN")
}
