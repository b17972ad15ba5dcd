package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelWrapping(t *testing.T) {
	err := Wrap(ErrRemoteLoadFailure, "fetching bundle for module maps-pro")
	require.Error(t, err)
	assert.True(t, Is(err, ErrRemoteLoadFailure))
	assert.False(t, Is(err, ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "maps-pro")
}

func TestIsRemoteLoadError(t *testing.T) {
	t.Run("remote load failure", func(t *testing.T) {
		err := Wrap(ErrRemoteLoadFailure, "unwrap bound exceeded")
		assert.True(t, IsRemoteLoadError(err))
	})

	t.Run("invalid capability shape", func(t *testing.T) {
		err := Wrap(ErrInvalidCapabilityShape, "no recognized export")
		assert.True(t, IsRemoteLoadError(err))
	})

	t.Run("unrelated error", func(t *testing.T) {
		assert.False(t, IsRemoteLoadError(New("boom")))
	})

	t.Run("nil", func(t *testing.T) {
		assert.False(t, IsRemoteLoadError(nil))
	})
}

func TestIsSourceUnavailableError(t *testing.T) {
	err := Wrapf(ErrSourceUnavailable, "backend fetch: status %d", 502)
	assert.True(t, IsSourceUnavailableError(err))
	assert.False(t, IsSourceUnavailableError(nil))
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("module %s", "telemetry")
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "telemetry")
}
