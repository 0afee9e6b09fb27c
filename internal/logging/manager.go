package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName names the otelslog bridge scope.
const instrumentationName = "github.com/OCAP2/bookmarks"

var stderr io.Writer = os.Stderr

// Format selects the encoding of the local log output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configure Setup.
type Options struct {
	// Output receives the local log. Nil means stderr.
	Output io.Writer
	Level  string
	Format Format
	// Provider, when set, also ships every record through the OTel bridge.
	Provider *sdklog.LoggerProvider
	Context  ContextProvider
}

// Manager owns the process logger. Setup may be called again once the
// configuration is known; loggers handed out earlier keep their old sinks.
type Manager struct {
	logger   *slog.Logger
	level    slog.LevelVar
	provider *sdklog.LoggerProvider
}

// NewManager returns a manager whose Logger is slog.Default until Setup runs.
func NewManager() *Manager {
	return &Manager{}
}

// ParseLevel accepts the slog level names in any case. Unknown names give
// LevelInfo and false.
func ParseLevel(s string) (slog.Level, bool) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, false
	}
	return l, true
}

// Setup builds a new logger from opts and returns it.
func (m *Manager) Setup(opts Options) *slog.Logger {
	m.SetLevel(opts.Level)
	m.provider = opts.Provider

	out := opts.Output
	if out == nil {
		out = stderr
	}
	handlerOpts := &slog.HandlerOptions{
		Level: &m.level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if t, ok := a.Value.Any().(time.Time); ok && a.Key == slog.TimeKey {
				a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	var local slog.Handler
	if opts.Format == FormatJSON {
		local = slog.NewJSONHandler(out, handlerOpts)
	} else {
		local = slog.NewTextHandler(out, handlerOpts)
	}

	var remote slog.Handler
	if opts.Provider != nil {
		remote = otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(opts.Provider))
	}

	var h slog.Handler = newFanout(local, remote)
	if opts.Context != nil {
		h = withContext{next: h, provider: opts.Context}
	}
	m.logger = slog.New(h)
	return m.logger
}

// SetLevel changes the level of the local output of the current logger.
func (m *Manager) SetLevel(level string) {
	l, _ := ParseLevel(level)
	m.level.Set(l)
}

// Logger returns the logger built by the last Setup.
func (m *Manager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records to their exporters.
func (m *Manager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}
