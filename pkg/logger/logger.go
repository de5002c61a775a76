package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Leveled logger shared by the service.
// - printf-style Debugf/Infof/Warnf/Errorf/Fatalf on top of log/slog
// - Init(level) / InitWithFormat(level, format) switch level and text|json output

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// slog has no fatal level; map it above error.
const slogFatal = slog.LevelError + 4

var (
	mu     sync.RWMutex
	out    io.Writer = os.Stdout
	format           = "text"
	level            = LevelInfo
	lvlVar           = new(slog.LevelVar)
	logger           = newLogger(out, format)
)

func newLogger(w io.Writer, f string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: lvlVar,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == slogFatal {
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	}
	if f == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func toSlog(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelFatal:
		return slogFatal
	}
	return slog.LevelInfo
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = parseLevel(l)
	lvlVar.Set(toSlog(level))
}

// InitWithFormat sets the level and switches the output encoding ("json" or "text").
func InitWithFormat(l, f string) {
	Init(l)
	mu.Lock()
	defer mu.Unlock()
	format = strings.ToLower(strings.TrimSpace(f))
	logger = newLogger(out, format)
}

// SetOutput redirects log output; mainly used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	logger = newLogger(out, format)
}

// Logger exposes the underlying structured logger for key/value logging.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func logf(l slog.Level, f string, v ...interface{}) {
	lg := Logger()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(f, v...))
}

func Debugf(format string, v ...interface{}) { logf(slog.LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(slog.LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(slog.LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(slog.LevelError, format, v...) }

func Fatalf(format string, v ...interface{}) {
	Logger().Log(context.Background(), slogFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	logf(slog.LevelInfo, "%s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
