package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestModuleLoggerLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo).Module("datastore")

	log.Debug("hidden")
	log.Info("visible", Uint("channel_id", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "module=datastore")
	assert.Contains(t, out, "channel_id=3")
	assert.NotContains(t, out, "time=")
}

func TestSubModuleAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := NewSlogLogger(buf, LogLevelTrace).Module("http")
	child := base.Module("auth").With(String("request_id", "abc12345"))

	child.Trace("login attempt")

	out := buf.String()
	assert.Contains(t, out, "module=http.auth")
	assert.Contains(t, out, "request_id=abc12345")
	assert.Contains(t, out, "level=TRACE")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo)

	ctx := WithTraceID(context.Background(), "trace-1")
	log.WithContext(ctx).Info("handled")
	log.WithContext(context.Background()).Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=trace-1")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestSensitiveValuesAreRedacted(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo)

	log.Info("user created",
		String("password", "Hunter22"),
		String("note", "Authorization: Bearer abc.def.ghi"),
		String("email", "op@example.com"))

	out := buf.String()
	assert.NotContains(t, out, "Hunter22")
	assert.NotContains(t, out, "abc.def.ghi")
	assert.Contains(t, out, "op@example.com")
}

func TestCentralLoggerWritesJSONFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	console := &bytes.Buffer{}
	cfg := &LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: true, Level: "info"},
		FileOutput:   &FileOutput{Enabled: true, Path: filepath.Join(dir, "app.log"), Level: "debug"},
		ModuleOutputs: map[string]ModuleOutput{
			"access": {Enabled: true, FilePath: filepath.Join(dir, "access.log"), Level: "info"},
		},
	}

	cl, err := NewCentralLogger(cfg, WithConsoleWriter(console))
	require.NoError(t, err)

	cl.Module("datastore").Debug("migrated", Int("tables", 11))
	cl.Module("access").Info("GET /channels", Int("status", 200))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "migrated", record["msg"])
	assert.Equal(t, "datastore", record["module"])
	assert.InDelta(t, 11, record["tables"], 0)

	access, err := os.ReadFile(filepath.Join(dir, "access.log"))
	require.NoError(t, err)
	assert.Contains(t, string(access), "GET /channels")

	// debug is below the console threshold
	assert.NotContains(t, console.String(), "migrated")
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{
		Timezone:   "Mars/Olympus",
		FileOutput: &FileOutput{Enabled: false},
	})
	require.Error(t, err)
}

func TestGormLoggerAdapter(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	adapter := NewGormLoggerAdapter(NewSlogLogger(buf, LogLevelTrace), 10*time.Millisecond)
	sql := func() (string, int64) { return "SELECT * FROM `channels`", 2 }

	adapter.Trace(context.Background(), time.Now(), sql, nil)
	adapter.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	adapter.Trace(context.Background(), time.Now(), sql, errors.New("disk I/O error"))
	adapter.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `msg="sql query"`))
	assert.Contains(t, out, `msg="slow query"`)
	assert.Contains(t, out, `msg="query error"`)
}

func TestBufferedFileWriterClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "panel.log")
	w, err := NewBufferedFileWriter(path, WithFlushInterval(0))
	require.NoError(t, err)

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "close is idempotent")

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(current))
}
