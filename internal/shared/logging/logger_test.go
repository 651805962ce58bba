package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewZapLogger_LevelsAndFormats(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "console info", level: "info", format: "console"},
		{name: "json debug", level: "debug", format: "json"},
		{name: "empty format defaults to console", level: "warn", format: ""},
		{name: "upper case level", level: "ERROR", format: "json"},
		{name: "unknown level", level: "loud", format: "json", wantErr: true},
		{name: "unknown format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewZapLogger(tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestZapLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core))

	logger.With("run_id", "r1").Info("Job completed", "worker_id", 3, "elapsed", "1.5s")
	logger.Warn("Skipping input", "path", "a.bmp")
	logger.Debug("Assigning job")

	entries := logs.All()
	require.Len(t, entries, 3)

	first := entries[0]
	require.Equal(t, "Job completed", first.Message)
	require.Equal(t, zapcore.InfoLevel, first.Level)
	fields := first.ContextMap()
	require.Equal(t, "r1", fields["run_id"])
	require.EqualValues(t, 3, fields["worker_id"])

	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "a.bmp", entries[1].ContextMap()["path"])
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("ignored", "k", "v")
	require.NoError(t, logger.With("a", 1).Sync())
}
