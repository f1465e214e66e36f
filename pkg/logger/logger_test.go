package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/devraulu/normurl/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONUsesBunyanLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	log.Warn("normalize failed", slog.String("url", "http://"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.EqualValues(t, 40, line["level"])
	assert.Equal(t, "normurl", line["name"])
	assert.Equal(t, "http://", line["url"])
}

func TestNewHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LoggingConfig{Level: "error", Format: "text"}, &buf)

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Error("kept")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestBunyanLevel(t *testing.T) {
	assert.Equal(t, 50, bunyanLevel(slog.LevelError))
	assert.Equal(t, 40, bunyanLevel(slog.LevelWarn))
	assert.Equal(t, 30, bunyanLevel(slog.LevelInfo))
	assert.Equal(t, 20, bunyanLevel(slog.LevelDebug))
	assert.Equal(t, 10, bunyanLevel(slog.LevelDebug-4))
}
