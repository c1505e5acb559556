package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"chatty", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.raw), "%q", tt.raw)
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, "json", parseFormat(""))
	assert.Equal(t, "console", parseFormat("Console"))
	assert.Equal(t, "json", parseFormat("xml"))
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	logger, err := NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
