// Package logging builds the structured logger shared by the daemon and its
// supporting binaries: zerolog JSON on stderr, optionally duplicated into a
// size-rotated file under the user cache directory.
package logging

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation policy for the on-disk log file.
const (
	maxSizeMB  = 20
	maxBackups = 3
	maxAgeDays = 14
)

// New builds the process logger. Output always goes to stderr so log-scraping
// supervisors and tests see it; when filePath is non-empty the same stream is
// duplicated into a rotated file there. Filtering runs through the zerolog
// global level, so SetLevel can retune a running process.
func New(level, filePath string) zerolog.Logger {
	return newLogger(os.Stderr, level, filePath)
}

func newLogger(console io.Writer, level, filePath string) zerolog.Logger {
	w := console
	if filePath != "" {
		rotated := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(console, rotated)
	}
	SetLevel(level)
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel applies a level name process-wide. Safe to call while the
// process is logging; the daemon's config watcher uses it on reload.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel maps a level name to a zerolog level. Unknown or empty names
// fall back to info rather than failing; logging must never stop startup.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// CaptureStdlog routes the standard library logger through l so package-level
// log.Printf lines share the same sinks as the structured output.
func CaptureStdlog(l zerolog.Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(l)
}

// DefaultFilePath places the rotated log under the user cache directory:
// <cache>/threadrunner/<name>.log. Returns "" when no cache dir is known,
// which disables the file sink.
func DefaultFilePath(name string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "threadrunner", name+".log")
}
