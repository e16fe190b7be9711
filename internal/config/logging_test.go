package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWithWriters_DualOutput(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("extraction started", "record_id", 7)

	// Text goes to stderr.
	assert.Contains(t, stderr.String(), "extraction started")
	assert.Contains(t, stderr.String(), "record_id=7")

	// JSON goes to the file writer.
	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "extraction started", entry["msg"])
	assert.Equal(t, float64(7), entry["record_id"])
}

func TestSetupLoggerWithWriters_LevelFilter(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Debug("noise")
	logger.Info("also noise")
	logger.Warn("kept")

	assert.NotContains(t, stderr.String(), "noise")
	assert.Contains(t, stderr.String(), "kept")
}
