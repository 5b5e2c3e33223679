package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		format     string
		enabled    zapcore.Level
		notEnabled zapcore.Level
	}{
		{"console debug", "debug", "console", zapcore.DebugLevel, zapcore.InvalidLevel},
		{"json warn", "warn", "json", zapcore.WarnLevel, zapcore.InfoLevel},
		{"unknown level falls back to info", "verbose", "json", zapcore.InfoLevel, zapcore.DebugLevel},
		{"empty level falls back to info", "", "", zapcore.InfoLevel, zapcore.DebugLevel},
		{"format is case insensitive", "error", "CONSOLE", zapcore.ErrorLevel, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.format)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.enabled))
			if tt.notEnabled != zapcore.InvalidLevel {
				assert.False(t, log.Core().Enabled(tt.notEnabled))
			}
		})
	}
}
