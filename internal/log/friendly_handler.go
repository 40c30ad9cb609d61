package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// NewConsoleHandler returns a slog.Handler that renders records at or above
// level as short human-readable blocks, e.g.
//
//	Error: embedding attempt failed
//	  error: launch MotionInput.exe: file not found
//	  generation: 3
func NewConsoleHandler(w io.Writer, level slog.Leveler) slog.Handler {
	if level == nil {
		level = slog.LevelWarn
	}
	return &consoleHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
	}
}

type consoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

type attrEntry struct {
	key   string
	value string
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	entries := h.collectEntries(record)

	summary := strings.TrimSpace(record.Message)
	if summary == "" {
		summary = lookup(entries, "error")
	}
	if summary == "" {
		summary = "an unknown error occurred"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", levelLabel(record.Level), summary)

	if cause := lookup(entries, "error"); cause != "" && cause != summary {
		writeEntry(&sb, attrEntry{key: "error", value: cause})
	}

	others := make([]attrEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.key == "error" || entry.value == "" {
			continue
		}
		others = append(others, entry)
	}
	sort.SliceStable(others, func(i, j int) bool {
		return others[i].key < others[j].key
	})
	for _, entry := range others {
		writeEntry(&sb, entry)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func (h *consoleHandler) collectEntries(record slog.Record) []attrEntry {
	entries := make([]attrEntry, 0, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		entries = append(entries, h.entry(attr))
	}
	record.Attrs(func(attr slog.Attr) bool {
		entries = append(entries, h.entry(attr))
		return true
	})
	return entries
}

func (h *consoleHandler) entry(attr slog.Attr) attrEntry {
	key := attr.Key
	if len(h.groups) > 0 {
		key = strings.Join(append(append([]string{}, h.groups...), key), ".")
	}
	return attrEntry{key: key, value: valueString(attr.Value.Resolve())}
}

func valueString(val slog.Value) string {
	switch val.Kind() {
	case slog.KindGroup:
		group := val.Group()
		parts := make([]string, 0, len(group))
		for _, attr := range group {
			parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, valueString(attr.Value.Resolve())))
		}
		return strings.Join(parts, ", ")
	case slog.KindAny:
		if err, ok := val.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(val.Any())
	default:
		return val.String()
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "Error"
	case level >= slog.LevelWarn:
		return "Warning"
	case level >= slog.LevelInfo:
		return "Info"
	default:
		return "Debug"
	}
}

func lookup(entries []attrEntry, key string) string {
	for _, entry := range entries {
		if entry.key == key {
			return entry.value
		}
	}
	return ""
}

func writeEntry(sb *strings.Builder, entry attrEntry) {
	lines := strings.Split(strings.TrimSpace(entry.value), "\n")
	fmt.Fprintf(sb, "  %s: %s\n", entry.key, strings.TrimSpace(lines[0]))
	for _, line := range lines[1:] {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			fmt.Fprintf(sb, "    %s\n", trimmed)
		}
	}
}
