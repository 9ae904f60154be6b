package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		logFile string
		enabled zapcore.Level
	}{
		{name: "debug level, no file", level: "debug", enabled: zapcore.DebugLevel},
		{name: "warn level, no file", level: "warn", enabled: zapcore.WarnLevel},
		{name: "invalid level defaults to info", level: "invalid", enabled: zapcore.InfoLevel},
		{name: "log file", level: "info", logFile: filepath.Join(t.TempDir(), "hunter.log"), enabled: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Log = zap.NewNop()

			require.NoError(t, Init(tt.level, tt.logFile))
			require.NotNil(t, Log)
			assert.True(t, Log.Core().Enabled(tt.enabled))
			if tt.enabled > zapcore.DebugLevel {
				assert.False(t, Log.Core().Enabled(tt.enabled-1))
			}

			if tt.logFile != "" {
				Log.Info("written to file")
				_ = Sync()
				_, err := os.Stat(tt.logFile)
				assert.NoError(t, err)
			}
		})
	}
}

func TestNamed(t *testing.T) {
	Log = zap.NewNop()
	assert.NotNil(t, Named("hunter"))
}

func TestSync_NilLogger(t *testing.T) {
	Log = nil
	assert.NoError(t, Sync())
	Log = zap.NewNop()
}
