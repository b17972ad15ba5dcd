// Package config manages Atlas host configuration.
//
// Configuration is sourced, lowest precedence first, from built-in
// defaults, /etc/atlas/config.toml, ~/.atlas/config.toml, a project
// config.toml found by walking up from the working directory, and
// ATLAS_* environment variables.
package config

// Config represents the core Atlas configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	Registry RegistryConfig `mapstructure:"registry" toml:"registry"`
	Loader   LoaderConfig   `mapstructure:"loader" toml:"loader"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
}

// ServerConfig configures the Atlas host server
type ServerConfig struct {
	Port           *int     `mapstructure:"port" toml:"port"` // nil = default 8610, 0 is invalid (omit for default)
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
}

// Server port constants
const (
	DefaultServerPort = 8610 // Development port, above the privileged range
)

// RegistryConfig configures module descriptor sources
type RegistryConfig struct {
	// ManifestPath locates the optional local module manifest. Missing
	// file is normal, not an error. Supports ~ and relative paths.
	ManifestPath string `mapstructure:"manifest_path" toml:"manifest_path"`

	// BackendURL is the tenant module list endpoint. Empty disables the
	// backend source.
	BackendURL string `mapstructure:"backend_url" toml:"backend_url"`

	// WatchManifest enables fsnotify reloads when the manifest changes.
	WatchManifest bool `mapstructure:"watch_manifest" toml:"watch_manifest"`

	// ReloadDebounceMs coalesces rapid manifest writes into one reload.
	ReloadDebounceMs int `mapstructure:"reload_debounce_ms" toml:"reload_debounce_ms"`

	// FetchTimeoutSeconds bounds manifest and backend fetches.
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds" toml:"fetch_timeout_seconds"`
}

// LoaderConfig configures remote capability bundle loading
type LoaderConfig struct {
	// FetchTimeoutSeconds bounds a single bundle fetch.
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds" toml:"fetch_timeout_seconds"`

	// RequestsPerSecond rate-limits bundle fetches across all modules.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second"`

	// Burst is the rate limiter burst size.
	Burst int `mapstructure:"burst" toml:"burst"`
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json"`
}

// GetServerPort returns the configured server port, falling back to the default.
func (c *Config) GetServerPort() int {
	if c.Server.Port == nil || *c.Server.Port <= 0 {
		return DefaultServerPort
	}
	return *c.Server.Port
}

// GetServerAllowedOrigins returns the origins permitted for CORS and
// WebSocket upgrades.
func (c *Config) GetServerAllowedOrigins() []string {
	return c.Server.AllowedOrigins
}
