package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasview/atlas/errors"
)

func writeDescriptorFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modules.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestModulesValidateAccepts(t *testing.T) {
	path := writeDescriptorFile(t, `[
		{"id": "maps-pro", "routePath": "/maps-pro", "remoteEntryUrl": "https://cdn.example.com/maps/entry.json"},
		{"id": "fleet", "routePath": "/fleet", "capabilities": {}}
	]`)

	assert.NoError(t, runModulesValidate(path))
}

func TestModulesValidateSingleObject(t *testing.T) {
	path := writeDescriptorFile(t, `{"id": "fleet", "routePath": "/fleet"}`)

	assert.NoError(t, runModulesValidate(path))
}

func TestModulesValidateRejectsMalformed(t *testing.T) {
	path := writeDescriptorFile(t, `[
		{"id": "fleet", "routePath": "/fleet"},
		{"id": "no-route"}
	]`)

	err := runModulesValidate(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedDescriptor))
}

func TestModulesValidateMissingFile(t *testing.T) {
	assert.Error(t, runModulesValidate(filepath.Join(t.TempDir(), "absent.json")))
}

func TestParseConfigValue(t *testing.T) {
	assert.Equal(t, int64(8611), parseConfigValue("8611"))
	assert.Equal(t, 2.5, parseConfigValue("2.5"))
	assert.Equal(t, true, parseConfigValue("true"))
	assert.Equal(t, int64(1), parseConfigValue("1"), "numbers win over ParseBool")
	assert.Equal(t, "modules.json", parseConfigValue("modules.json"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactlyten", truncate("exactlyten", 10))
	assert.Equal(t, "very lo...", truncate("very long module id", 10))
}
