package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, line string) LogEntry {
	t.Helper()
	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestLoggerWritesJSONEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: InfoLevel, Output: &buf, Version: "1.2.3"})

	logger.Info("Model built", map[string]interface{}{"model": "dim_date", "rows_out": 730})

	entry := decodeEntry(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "Model built", entry.Message)
	assert.Equal(t, "martbuild", entry.Service)
	assert.Equal(t, "1.2.3", entry.Version)
	assert.Equal(t, "dim_date", entry.Fields["model"])
	assert.EqualValues(t, 730, entry.Fields["rows_out"])
	assert.False(t, entry.Timestamp.IsZero())
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: WarnLevel, Output: &buf})

	logger.Debug("noise", nil)
	logger.Info("noise", nil)
	assert.Empty(t, buf.String())

	logger.Warn("Rows dropped", nil)
	logger.Error("Build failed", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "WARN", decodeEntry(t, lines[0]).Level)
	assert.Equal(t, "ERROR", decodeEntry(t, lines[1]).Level)
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: InfoLevel, Output: &buf}).
		WithField("run_id", "abc123").
		WithFields(map[string]interface{}{"target": "snowflake"})

	logger.Info("Pipeline run complete", map[string]interface{}{"models": 14})

	entry := decodeEntry(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "abc123", entry.Fields["run_id"])
	assert.Equal(t, "snowflake", entry.Fields["target"])
	assert.EqualValues(t, 14, entry.Fields["models"])
}

func TestLoggerOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: InfoLevel, Output: &buf})

	logger.Info("plain message", nil)
	assert.NotContains(t, buf.String(), `"fields"`)
}
