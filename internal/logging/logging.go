// Package logging provides structured logging using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

var mu sync.RWMutex

// Level represents log levels.
type Level = zerolog.Level

// Log levels exposed for convenience.
const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	Disabled   = zerolog.Disabled
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Pretty enables human-readable console output.
	Pretty bool
	// TimeFormat specifies the time format. Defaults to RFC3339.
	TimeFormat string
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Level:      WarnLevel,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global logger with the given configuration.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	out := cfg.Output
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	l := zerolog.New(out).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()

	mu.Lock()
	zerolog.TimeFieldFormat = cfg.TimeFormat
	Logger = l
	mu.Unlock()
}

// ParseLevel parses a log level string (case-insensitive).
// Supported values: DEBUG, INFO, WARN, ERROR, OFF.
// Returns WarnLevel if the string is not recognized.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "OFF", "NONE":
		return Disabled
	default:
		return WarnLevel
	}
}

// Component returns a child logger tagged with the given component name.
// The child is derived from the logger current at call time, so packages
// should call it lazily rather than caching the result at init.
func Component(name string) *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := Logger.With().Str("component", name).Logger()
	return &l
}

// Debug starts a new debug level log message.
func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return Logger.Debug()
}

// Info starts a new info level log message.
func Info() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return Logger.Info()
}

// Warn starts a new warn level log message.
func Warn() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return Logger.Warn()
}

// Error starts a new error level log message.
func Error() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return Logger.Error()
}

func init() {
	Init(DefaultConfig())
}
