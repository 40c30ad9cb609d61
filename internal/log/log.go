package log

import (
	"fmt"
	"log/slog"
	"strings"
)

type Key struct{}

var LoggerKey = Key{}

// LevelTrace is a custom trace level for slog
// Using LevelDebug - 4 which equals -8
const LevelTrace = slog.LevelDebug - 4

// Levels lists the accepted log-level values, most verbose first.
var Levels = []string{"trace", "debug", "info", "warn", "error"}

// ParseLevel maps a log-level value to its slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q, must be one of %v", level, Levels)
	}
}

// ConfigLevelStringToSlogLevel is ParseLevel with unknown values treated as
// error level.
func ConfigLevelStringToSlogLevel(level string) slog.Level {
	lvl, err := ParseLevel(level)
	if err != nil {
		return slog.LevelError
	}
	return lvl
}

// replaceLevel renders LevelTrace as "TRACE" instead of "DEBUG-4".
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}
