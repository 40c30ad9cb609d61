package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
)

// Options configures the CLI logger.
type Options struct {
	// Level is one of Levels.
	Level string
	// File receives every record at Level. Empty means stderr gets them all.
	File string
	// Stderr receives mirrored records.
	Stderr io.Writer
	// Mirror is the lowest level copied to Stderr when File is set. Defaults
	// to error.
	Mirror slog.Leveler
}

// New builds the logger described by opts. The returned closer releases the
// log file and must be called once logging is done.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	if opts.File == "" {
		return slog.New(consoleOrText(stderr, level)), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	primary := slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	})

	mirror := opts.Mirror
	if mirror == nil {
		mirror = slog.LevelError
	}
	return slog.New(NewDualHandler(primary, consoleOrText(stderr, mirror), mirror)), f, nil
}

// consoleOrText picks the human-friendly handler when w is a terminal and a
// plain text handler otherwise.
func consoleOrText(w io.Writer, level slog.Leveler) slog.Handler {
	if IsTerminal(w) {
		return NewConsoleHandler(w, level)
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	})
}

// IsTerminal reports whether w is backed by a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
