package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json")

	log.Debug("file shared", "file_id", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "file shared", entry["msg"])
	require.Equal(t, "DEBUG", entry["level"])
	require.EqualValues(t, 7, entry["file_id"])
}

func TestNew_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "text")

	log.Info("hidden")
	require.Empty(t, buf.String())

	log.Warn("shown")
	require.Contains(t, buf.String(), "msg=shown")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}
