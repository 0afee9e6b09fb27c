// Package logging builds the slog logger shared by the bookmark core and the
// command line tool, with an optional OpenTelemetry bridge.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const sessionLayout = "20060102_150405"

// LogFilePath names the log file of the session started at sessionStart.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", appName, sessionStart.Format(sessionLayout)))
}

// OpenLogFile creates logsDir and opens the session log for appending.
// A log left under the same name by an earlier session is moved to
// <name>.old first.
func OpenLogFile(logsDir, appName string, sessionStart time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory: %w", err)
	}
	path := LogFilePath(logsDir, appName, sessionStart)
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, fmt.Errorf("keeping previous log: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
