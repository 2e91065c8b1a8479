package log

import (
	"fmt"
	stdlog "log"
	"os"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *stdlog.Logger
	loggerOnce sync.Once
	minLevel   = LevelInfo
)

// initLogger initializes the global logger to write to stderr.
func initLogger() {
	loggerOnce.Do(func() {
		logger = stdlog.New(os.Stderr, "", 0)
		minLevel = LevelInfo
	})
}

func SetLevel(l Level) {
	initLogger()
	minLevel = l
}

// Logger is a named component logger. The name is emitted on every line so
// that sync/import/views/web output can be told apart in one stream.
type Logger struct {
	name string
}

// Named returns a logger for the given component (e.g. "sync", "views").
func Named(name string) *Logger {
	return &Logger{name: name}
}

func (l *Logger) Debug(msg string, kv ...any) { logWithLevel(l.name, LevelDebug, msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { logWithLevel(l.name, LevelInfo, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { logWithLevel(l.name, LevelWarn, msg, kv...) }

func (l *Logger) Error(msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	logWithLevel(l.name, LevelError, msg, extended...)
}

// Package-level helpers for code without a component logger.

func Debug(msg string, kv ...any) { logWithLevel("", LevelDebug, msg, kv...) }
func Info(msg string, kv ...any)  { logWithLevel("", LevelInfo, msg, kv...) }
func Warn(msg string, kv ...any)  { logWithLevel("", LevelWarn, msg, kv...) }

func Error(msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	logWithLevel("", LevelError, msg, extended...)
}

func logWithLevel(name string, level Level, msg string, kv ...any) {
	initLogger()
	if !enabled(level) {
		return
	}

	ts := time.Now().Format(time.RFC3339Nano)

	// Line format:
	// 2025-01-01T00:00:00Z [LEVEL] name - msg key=value ...
	line := ts + " [" + string(level) + "]"
	if name != "" {
		line += " " + name + " -"
	}
	line += " " + msg

	if len(kv) > 0 {
		line += formatKVs(kv...)
	}

	logger.Println(line)
}

func enabled(level Level) bool {
	switch minLevel {
	case LevelDebug:
		return true
	case LevelInfo:
		return level != LevelDebug
	case LevelWarn:
		return level == LevelWarn || level == LevelError
	case LevelError:
		return level == LevelError
	default:
		return true
	}
}

func formatKVs(kv ...any) string {
	out := ""
	// Expect kv as pairs: key, value, key, value, ...
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out += " " + key + "=" + fmt.Sprint(kv[i+1])
	}
	// If odd number of args, last one is ignored.
	return out
}
