package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/atlasview/atlas/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete oldest backup")
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// UserConfigPath returns the path to the user config file in ~/.atlas/config.toml
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".atlas", "config.toml")
}

// Save writes the given settings to the user config file with a rotating
// backup of the previous version. Settings are merged into the existing
// file contents so unrelated sections survive.
func Save(settings map[string]interface{}) error {
	configPath := UserConfigPath()
	if configPath == "" {
		return errors.New("could not determine home directory")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return errors.Wrap(err, "failed to create .atlas directory")
	}

	// Merge into existing config so partial updates don't clobber the file
	existing := make(map[string]interface{})
	if data, err := os.ReadFile(configPath); err == nil {
		if err := toml.Unmarshal(data, &existing); err != nil {
			return errors.Wrap(err, "failed to parse existing config")
		}
	}
	mergeSettings(existing, settings)

	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(existing)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write config")
	}

	return nil
}

// SaveKey persists a single dot-notation key (e.g. "server.port") to the
// user config file, nesting it into the matching TOML table.
func SaveKey(key string, value interface{}) error {
	parts := strings.Split(key, ".")

	setting := map[string]interface{}{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		setting = map[string]interface{}{parts[i]: setting}
	}
	return Save(setting)
}

// mergeSettings folds src into dst, descending into tables both sides
// share so sibling keys in an existing section survive a partial update.
func mergeSettings(dst, src map[string]interface{}) {
	for k, val := range src {
		srcTable, srcIsTable := val.(map[string]interface{})
		dstTable, dstIsTable := dst[k].(map[string]interface{})
		if srcIsTable && dstIsTable {
			mergeSettings(dstTable, srcTable)
			continue
		}
		dst[k] = val
	}
}
