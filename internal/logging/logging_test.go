package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

var sessionStart = time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

func TestLogFilePath(t *testing.T) {
	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{"relative", "logs", filepath.Join("logs", "bookmarks.20260212_213836.log")},
		{"dot", "./logs", filepath.Join(".", "logs", "bookmarks.20260212_213836.log")},
		{"absolute", filepath.Join("/var", "log"), filepath.Join("/var", "log", "bookmarks.20260212_213836.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "bookmarks", sessionStart))
		})
	}
}

func TestOpenLogFile_KeepsPreviousSession(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	f, err := OpenLogFile(dir, "bookmarks", sessionStart)
	require.NoError(t, err)
	_, err = f.WriteString("first run\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenLogFile(dir, "bookmarks", sessionStart)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	old, err := os.ReadFile(LogFilePath(dir, "bookmarks", sessionStart) + ".old")
	require.NoError(t, err)
	assert.Equal(t, "first run\n", string(old))

	cur, err := os.ReadFile(LogFilePath(dir, "bookmarks", sessionStart))
	require.NoError(t, err)
	assert.Empty(t, cur)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{"Info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", slog.LevelInfo, false},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestSetup_Levels(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager()
	log := m.Setup(Options{Output: &buf, Level: "info"})

	log.Debug("hidden")
	log.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	m.SetLevel("debug")
	log.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestSetup_DefaultsToStderr(t *testing.T) {
	var buf bytes.Buffer
	orig := stderr
	stderr = &buf
	t.Cleanup(func() { stderr = orig })

	NewManager().Setup(Options{Level: "info"}).Info("to stderr")
	assert.Contains(t, buf.String(), "to stderr")
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	NewManager().Setup(Options{Output: &buf, Format: FormatJSON}).Info("saved", "category", "Trip")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "saved", rec["msg"])
	assert.Equal(t, "Trip", rec["category"])

	ts, ok := rec["time"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestSetup_ContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	pending := 0
	log := NewManager().Setup(Options{
		Output:  &buf,
		Context: func() []slog.Attr { return []slog.Attr{slog.Int("pendingTasks", pending)} },
	})

	pending = 3
	log.With("component", "loader").WithGroup("job").Info("queued", "kind", "load")
	assert.Contains(t, buf.String(), "pendingTasks=3")
	assert.Contains(t, buf.String(), "component=loader")
	assert.Contains(t, buf.String(), "job.kind=load")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer
	m := NewManager()
	m.Setup(Options{Output: &first})
	m.Setup(Options{Output: &second})
	m.Logger().Info("after")

	assert.NotContains(t, first.String(), "after")
	assert.Contains(t, second.String(), "after")
}

func TestManager_BeforeSetup(t *testing.T) {
	m := NewManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestSetup_WithProvider(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager()
	m.Setup(Options{Output: &buf, Provider: sdklog.NewLoggerProvider()}).Info("bridged")

	assert.Contains(t, buf.String(), "bridged")
	assert.NoError(t, m.Flush(context.Background()))
}

type failingSink struct{ slog.Handler }

func (failingSink) Enabled(context.Context, slog.Level) bool { return true }

func (failingSink) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestFanout(t *testing.T) {
	var info, debug bytes.Buffer
	infoSink := slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugSink := slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug})

	f := newFanout(nil, infoSink, debugSink, nil)
	require.Len(t, f, 2)
	assert.True(t, f.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, newFanout(infoSink).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, newFanout().Enabled(context.Background(), slog.LevelError))

	slog.New(f).Debug("detail")
	assert.Empty(t, info.String())
	assert.Contains(t, debug.String(), "detail")

	assert.Equal(t, f, f.WithGroup(""))
}

func TestFanout_FailingSink(t *testing.T) {
	var buf bytes.Buffer
	f := newFanout(failingSink{}, slog.NewTextHandler(&buf, nil))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0)
	err := f.Handle(context.Background(), r)
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "still delivered")
}
