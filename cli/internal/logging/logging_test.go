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
	"go.uber.org/zap"
)

func TestNew_defaultsToWarnConsole(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, closeFn, err := New(Options{}, &buf)
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown", zap.Int("reviewed", 2))
	require.NoError(t, closeFn())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"reviewed": 2`)
}

func TestNew_jsonFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, closeFn, err := New(Options{Level: "DEBUG", Format: "json", Name: "wpcc-triage"}, &buf)
	require.NoError(t, err)
	log.Debug("classified", zap.String("id", "spo-001-debug-code"))
	require.NoError(t, closeFn())

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "wpcc-triage", rec["logger"])
	assert.Equal(t, "classified", rec["msg"])
	assert.Equal(t, "spo-001-debug-code", rec["id"])
}

func TestNew_fileReceivesJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "triage.log")
	var console bytes.Buffer
	log, closeFn, err := New(Options{Level: "info", File: path}, &console)
	require.NoError(t, err)
	log.Info("annotated", zap.String("report", "scan.json"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "annotated", rec["msg"])
	assert.Contains(t, console.String(), "annotated")
}

func TestNew_invalidOptions(t *testing.T) {
	t.Parallel()
	_, _, err := New(Options{Level: "loud"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid level")
	_, _, err = New(Options{Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid format")
}
