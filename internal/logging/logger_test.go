package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, raw string) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}

	return entries
}

func TestNewLoggerWritesFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := NewLogger(dir, LevelDebug)
	require.NoError(t, err)

	logger.Debug("debug message", "key", "value")
	logger.Info("info message")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)

	entries := decodeLines(t, string(content))
	require.Len(t, entries, 2)
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "value", entries[0]["key"])
}

func TestLoggerFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("skipped")
	logger.Warn("kept")
	logger.Error("kept too")

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0]["msg"])
}

func TestChildLoggersCarryContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := New(&buf, LevelInfo)

	base.WithRun("r-1").WithRound(2).WithSpeaker("Skeptic").With("strategy", "round_robin", 7, "ignored").Info("turn finished")
	base.Info("plain")

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 2)
	assert.Equal(t, "r-1", entries[0]["run_id"])
	assert.InDelta(t, 2, entries[0]["round"], 0)
	assert.Equal(t, "Skeptic", entries[0]["speaker"])
	assert.Equal(t, "round_robin", entries[0]["strategy"])
	assert.NotContains(t, entries[1], "run_id")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestNopLoggerDiscards(t *testing.T) {
	t.Parallel()

	logger := NopLogger()
	logger.Error("nothing")
	assert.NoError(t, logger.Close())
}
