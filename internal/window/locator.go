package window

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Locator resolves windows by title, either once or by polling until one
// appears.
type Locator struct {
	sys      System
	interval time.Duration
	logger   *slog.Logger
}

// NewLocator builds a Locator polling sys every interval. A non-positive
// interval selects DefaultPollInterval.
func NewLocator(sys System, interval time.Duration, logger *slog.Logger) *Locator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		sys:      sys,
		interval: interval,
		logger:   logger,
	}
}

// Interval returns the polling interval.
func (l *Locator) Interval() time.Duration {
	return l.interval
}

// FindByTitle performs a single registry query.
func (l *Locator) FindByTitle(title string) (Handle, error) {
	h, err := l.sys.FindByTitle(title)
	if err != nil {
		return 0, fmt.Errorf("find window %q: %w", title, err)
	}
	return h, nil
}

// WaitForWindow queries immediately and then once per interval until a
// window titled title exists whose handle is not listed in ignore. It has no
// deadline of its own; it stops only when ctx is done. Query errors are
// logged and polling continues.
func (l *Locator) WaitForWindow(ctx context.Context, title string, ignore ...Handle) (Handle, error) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	polls := 0
	for {
		polls++
		h, err := l.FindByTitle(title)
		switch {
		case err != nil:
			l.logger.Warn("window lookup failed", "title", title, "poll", polls, "error", err)
		case h != 0 && !slices.Contains(ignore, h):
			l.logger.Debug("window found", "title", title, "handle", h.String(), "polls", polls)
			return h, nil
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}
