package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	t.Run("console output", func(t *testing.T) {
		err := Initialize(false, VerbosityUser)
		require.NoError(t, err)
		assert.NotNil(t, Logger)
		assert.False(t, JSONOutput)
	})

	t.Run("json output", func(t *testing.T) {
		err := Initialize(true, VerbosityUser)
		require.NoError(t, err)
		assert.NotNil(t, Logger)
		assert.True(t, JSONOutput)
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		err := Initialize(false, VerbosityDebug)
		require.NoError(t, err)
		assert.True(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))
	})
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(3))
}

func TestLoggerBeforeInitialize(t *testing.T) {
	// The package-level no-op logger must absorb calls made before Initialize
	assert.NotPanics(t, func() {
		Infow("startup probe", "key", "value")
		Warnf("warning %d", 42)
		Errorw("failure", "reason", "none")
	})
}

func TestNamed(t *testing.T) {
	require.NoError(t, Initialize(false, VerbosityUser))
	named := Named("registry")
	assert.NotNil(t, named)
	assert.NotPanics(t, func() {
		named.Infow("named logger works", "module", "core")
	})
}

func TestMinimalEncoderEntry(t *testing.T) {
	enc := newMinimalEncoder()

	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Date(2026, 3, 14, 13, 4, 35, 0, time.UTC),
		LoggerName: "atlas.registry",
		Message:    "Merged module descriptors",
	}
	fields := []zapcore.Field{
		zap.String("module", "maps-pro"),
		zap.Int("sources", 3),
	}

	buf, err := enc.EncodeEntry(entry, fields)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "13:04:35")
	assert.Contains(t, out, "a.registry")
	assert.Contains(t, out, "Merged module descriptors")
	assert.Contains(t, out, "module=")
	assert.Contains(t, out, "maps-pro")
	assert.NotContains(t, out, "INFO", "info level marker is suppressed")
}

func TestMinimalEncoderWarnLevel(t *testing.T) {
	enc := newMinimalEncoder()

	entry := zapcore.Entry{
		Level:   zapcore.WarnLevel,
		Time:    time.Now(),
		Message: "remote capability load failed",
	}

	buf, err := enc.EncodeEntry(entry, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "WARN")
}

func TestAbbreviateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single segment", "registry", "registry"},
		{"two segments", "atlas.registry", "a.registry"},
		{"three segments", "atlas.remote.loader", "a.r.loader"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, abbreviateName(tt.input))
		})
	}
}

func TestCleanup(t *testing.T) {
	require.NoError(t, Initialize(false, VerbosityUser))
	assert.NotPanics(t, Cleanup)
}
