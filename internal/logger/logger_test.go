package logger

import (
	"bytes"
	"encoding/json/v2"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Environment: "production"})

	log.Info("book published", "book_id", "bk-V1StGXR8_Z5jdHi6B-myT", "pages", 12)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record),
		"production output is one JSON object per line")
	assert.Equal(t, "book published", record["msg"])
	assert.Equal(t, "bk-V1StGXR8_Z5jdHi6B-myT", record["book_id"])
	assert.Equal(t, "INFO", record["level"])
}

func TestNew_DevelopmentUsesConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Environment: "development"})

	log.Info("spool scan complete", "dir", "/var/lib/openark/uploads")

	out := buf.String()
	var record map[string]any
	assert.Error(t, json.Unmarshal(buf.Bytes(), &record),
		"console output is not JSON")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "spool scan complete")
	assert.Contains(t, out, "dir=/var/lib/openark/uploads")
}

func TestNew_ExplicitFormatWinsOverEnvironment(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json", Environment: "development"})

	log.Info("ocr provider selected", "provider", "ocrspace")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ocr provider selected", record["msg"])
}

func TestNew_LevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json", Level: slog.LevelWarn})

	log.Debug("cache hit")
	log.Info("listing books")
	log.Warn("ocr provider slow", "elapsed", "2.1s")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug and info are below the configured level")
	assert.Contains(t, lines[0], "ocr provider slow")
}

func TestConsoleHandler_LevelLabels(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "console", Level: slog.LevelDebug})

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "DEBUG")
	assert.Contains(t, lines[1], "INFO")
	assert.Contains(t, lines[2], "WARN")
	assert.Contains(t, lines[3], "ERROR")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "input %q", tt.input)
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.WithError(errors.New("badger: key not found")).Error("load book failed")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "badger: key not found", record["error"])
	assert.Equal(t, "load book failed", record["msg"])
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	scoped := log.WithField("user_id", "usr-4f90d13a42")
	scoped.Info("comment posted")
	scoped.Info("comment deleted")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "usr-4f90d13a42", "the field sticks to every record")
	}
}

func TestConsoleHandler_GroupsBecomeKeyPrefixes(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "console"})

	log.WithGroup("ingest").Info("page spooled", "index", 3)

	assert.Contains(t, buf.String(), "ingest.index=3")
}

func TestConsoleHandler_AttrsFromWithSurvive(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "console"})

	log.With("book_id", "bk-archived-1").Warn("archive requested")

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "book_id=bk-archived-1")
}

func TestConsoleHandler_AddSourceShowsBasename(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "console", AddSource: true})

	log.Info("server listening")

	out := buf.String()
	assert.Contains(t, out, "logger_test.go:", "source is the file basename, not the full path")
	assert.NotContains(t, out, "/internal/logger/")
}

func TestNew_NilWriterDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		log := New(Config{Environment: "production"})
		require.NotNil(t, log.Logger)
	})
}
