// Package logging is a thin level filter over the standard library's log
// package. The rest of the module calls log.Printf directly, the same as
// the daemon it was adapted from; this package exists only at the handful
// of call sites that need to honor BLENDER_MCP_LOG_LEVEL.
package logging

import (
	"log"
	"os"
	"strings"
)

// Level orders verbosity from least to most chatty.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel maps an env var value to a Level, defaulting to LevelInfo for
// an empty or unrecognized string.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// LevelFromEnv reads BLENDER_MCP_LOG_LEVEL, defaulting to LevelInfo.
func LevelFromEnv() Level {
	return ParseLevel(os.Getenv("BLENDER_MCP_LOG_LEVEL"))
}

// Logger gates log.Printf calls by level. The zero value logs at LevelError.
type Logger struct {
	level Level
}

// New returns a Logger at the given level.
func New(level Level) *Logger {
	return &Logger{level: level}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LevelDebug {
		log.Printf("debug: "+format, args...)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LevelInfo {
		log.Printf(format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.level >= LevelWarn {
		log.Printf("warning: "+format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level >= LevelError {
		log.Printf("error: "+format, args...)
	}
}
