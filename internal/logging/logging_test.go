package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		verbose bool
		want    zapcore.Level
	}{
		{"default level", "", "json", false, zapcore.InfoLevel},
		{"explicit level", "warn", "console", false, zapcore.WarnLevel},
		{"verbose wins", "error", "console", true, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format, tt.verbose)
			require.NoError(t, err)
			assert.Equal(t, tt.want, zapcore.LevelOf(logger.Core()))
		})
	}
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("loud", "json", false)
	require.Error(t, err)
}
