// Package logging sets up the structured loggers used by the client and the
// devnet node.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes human-readable lines to the console, JSON lines to an
// optional log file, and audit events to an optional audit file.
type Logger struct {
	zerolog.Logger

	mu    sync.Mutex
	audit zerolog.Logger
	files []*os.File
}

// ParseLevel maps debug, info, warn, error and fatal to zerolog levels.
// Anything else is info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	}
	return zerolog.InfoLevel
}

// New opens the optional files and returns the logger. Console output goes to
// stderr so stdout stays free for command results.
func New(level, logFile, auditFile string) (*Logger, error) {
	return newLogger(os.Stderr, level, logFile, auditFile)
}

func newLogger(console io.Writer, level, logFile, auditFile string) (*Logger, error) {
	l := &Logger{audit: zerolog.Nop()}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime}}
	if logFile != "" {
		f, err := openAppend(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.files = append(l.files, f)
		writers = append(writers, f)
	}
	if auditFile != "" {
		f, err := openAppend(auditFile)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to open audit file: %w", err)
		}
		l.files = append(l.files, f)
		l.audit = zerolog.New(f).With().Timestamp().Logger()
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(level)).
		With().Timestamp().Logger()
	return l, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// Audit records an event in the audit file. It is a no-op without one.
func (l *Logger) Audit(event string, details map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.audit.Log().Str("event", event).Fields(details).Msg("audit")
}

// Close closes the log and audit files.
func (l *Logger) Close() error {
	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.files = nil
	return first
}
