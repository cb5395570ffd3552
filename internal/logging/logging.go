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

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once

	baseMu sync.RWMutex
	base   zerolog.Logger
	baseOK bool
)

// initLevel initializes the log level from environment variables
func initLevel() {
	levelOnce.Do(func() {
		currentLevel = parseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
	})
}

// parseLevel resolves the effective level from the DEBUG and LOG_LEVEL values.
func parseLevel(debug, level string) LogLevel {
	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func logger() zerolog.Logger {
	baseMu.RLock()
	if baseOK {
		l := base
		baseMu.RUnlock()
		return l
	}
	baseMu.RUnlock()

	baseMu.Lock()
	defer baseMu.Unlock()
	if !baseOK {
		base = newZerolog(os.Stderr, os.Getenv("LOG_FORMAT"))
		baseOK = true
	}
	return base
}

func newZerolog(w io.Writer, format string) zerolog.Logger {
	var out io.Writer = w
	if strings.EqualFold(format, "console") {
		console := zerolog.NewConsoleWriter()
		console.Out = w
		console.TimeFormat = time.RFC3339
		out = console
	}
	return zerolog.New(out).Level(GetLevel().zerolog()).With().Timestamp().Logger()
}

// SetOutput redirects all log output to w using the given format ("json" or
// "console"). Mostly useful for tests and the CLI.
func SetOutput(w io.Writer, format string) {
	baseMu.Lock()
	defer baseMu.Unlock()
	base = newZerolog(w, format)
	baseOK = true
}

// SetLevel overrides the level read from DEBUG and LOG_LEVEL. Call it before
// logging starts.
func SetLevel(l LogLevel) {
	initLevel()
	baseMu.Lock()
	defer baseMu.Unlock()
	currentLevel = l
	if baseOK {
		base = base.Level(l.zerolog())
	}
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		l := logger()
		l.Debug().Msgf(format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		l := logger()
		l.Info().Msgf(format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		l := logger()
		l.Warn().Msgf(format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		l := logger()
		l.Error().Msgf(format, args...)
	}
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	l := logger()
	l.Fatal().Msgf(format, args...)
}

// Logger tags every message with a component name.
type Logger struct {
	component string
}

// With returns a Logger for the named component.
func With(component string) *Logger {
	return &Logger{component: component}
}

func (c *Logger) event(e *zerolog.Event, format string, args []interface{}) {
	if c != nil && c.component != "" {
		e = e.Str("component", c.component)
	}
	e.Msgf(format, args...)
}

// Debug logs a debug message for the component.
func (c *Logger) Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		l := logger()
		c.event(l.Debug(), format, args)
	}
}

// Info logs an info message for the component.
func (c *Logger) Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		l := logger()
		c.event(l.Info(), format, args)
	}
}

// Warn logs a warning for the component.
func (c *Logger) Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		l := logger()
		c.event(l.Warn(), format, args)
	}
}

// Error logs an error for the component.
func (c *Logger) Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		l := logger()
		c.event(l.Error(), format, args)
	}
}

// InfoFields logs msg at info level with structured fields attached.
func (c *Logger) InfoFields(msg string, fields map[string]interface{}) {
	if GetLevel() <= LevelInfo {
		l := logger()
		e := l.Info().Fields(fields)
		if c != nil && c.component != "" {
			e = e.Str("component", c.component)
		}
		e.Msg(msg)
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
