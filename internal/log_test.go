package internal

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags, out := log.Flags(), log.Writer()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(out)
		log.SetFlags(flags)
	})
	return &buf
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, LogLevelDebug, ParseLogLevel(" debug "))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestLoggerFiltersByLevel(t *testing.T) {
	buf := captureLog(t)
	logger := NewLogger(LogLevelWarn, "Pipeline")

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("column %s is sparse", "x")
	logger.Error("boom")

	assert.Equal(t, "[Pipeline] Warning: column x is sparse\n[Pipeline] ERROR: boom\n", buf.String())
}

func TestLoggerDebug(t *testing.T) {
	buf := captureLog(t)
	NewLogger(LogLevelDebug, "Pipeline").Debug("SQL types for %s: %v", "sales", map[string]string{"a": "INTEGER"})

	assert.Equal(t, "[Pipeline] SQL types for sales: map[a:INTEGER]\n", buf.String())
}
