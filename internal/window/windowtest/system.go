// Package windowtest provides an in-memory window.System for tests.
package windowtest

import (
	"sync"

	"github.com/mkwak13/winter-sports/internal/window"
)

// DefaultStyle is the style given to windows opened by System: an
// overlapped window with caption, border and resize frame.
const DefaultStyle window.Style = 0x10CF0000

// System is a thread-safe fake window manager. Windows are keyed by title;
// closing a window removes it immediately.
type System struct {
	mu sync.Mutex

	next       window.Handle
	titles     map[string]window.Handle
	styles     map[window.Handle]window.Style
	placements map[window.Handle]window.Rect
	scheduled  map[string]int
	queries    map[string]int
	setStyles  int
	closed     []window.Handle
	focused    []window.Handle
	foreground window.Handle

	// FindErr, when set, is returned by FindByTitle instead of a result.
	FindErr error
	// PositionErr, when set, is returned by SetPosition.
	PositionErr error
}

var _ window.System = (*System)(nil)

// New returns an empty System whose foreground window is host.
func New(host window.Handle) *System {
	return &System{
		next:       0x1000,
		titles:     map[string]window.Handle{},
		styles:     map[window.Handle]window.Style{},
		placements: map[window.Handle]window.Rect{},
		scheduled:  map[string]int{},
		queries:    map[string]int{},
		foreground: host,
	}
}

// Open creates a window titled title right away and returns its handle.
func (s *System) Open(title string) window.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(title)
}

// OpenAfter makes a window titled title appear once FindByTitle has been
// called for that title n more times; the (n+1)th query finds it.
func (s *System) OpenAfter(title string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[title] = s.queries[title] + n
}

// Handle returns the current handle for title, or zero.
func (s *System) Handle(title string) window.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.titles[title]
}

// Queries returns how many times FindByTitle was called for title.
func (s *System) Queries(title string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[title]
}

// StyleOf returns the current style of h.
func (s *System) StyleOf(h window.Handle) window.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styles[h]
}

// StyleWrites returns how many SetStyle calls were made.
func (s *System) StyleWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStyles
}

// Placement returns the last rectangle h was placed at.
func (s *System) Placement(h window.Handle) (window.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.placements[h]
	return r, ok
}

// Closed returns every handle that received a close request, in order.
func (s *System) Closed() []window.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]window.Handle(nil), s.closed...)
}

// Focused returns every handle passed to SetForeground, in order.
func (s *System) Focused() []window.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]window.Handle(nil), s.focused...)
}

func (s *System) FindByTitle(title string) (window.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FindErr != nil {
		return 0, s.FindErr
	}

	s.queries[title]++
	if due, ok := s.scheduled[title]; ok && s.queries[title] > due {
		delete(s.scheduled, title)
		s.openLocked(title)
	}
	return s.titles[title], nil
}

func (s *System) Style(h window.Handle) (window.Style, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styles[h], nil
}

func (s *System) SetStyle(h window.Handle, style window.Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStyles++
	s.styles[h] = style
	return nil
}

func (s *System) SetPosition(h window.Handle, rect window.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PositionErr != nil {
		return s.PositionErr
	}
	s.placements[h] = rect
	return nil
}

func (s *System) PostClose(h window.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, h)
	for title, handle := range s.titles {
		if handle == h {
			delete(s.titles, title)
		}
	}
	return nil
}

func (s *System) Foreground() (window.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.foreground, nil
}

func (s *System) SetForeground(h window.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = append(s.focused, h)
	s.foreground = h
	return nil
}

func (s *System) openLocked(title string) window.Handle {
	s.next++
	h := s.next
	s.titles[title] = h
	s.styles[h] = DefaultStyle
	return h
}
