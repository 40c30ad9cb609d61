// Package window wraps the handful of native window-manager calls needed to
// make a foreign top-level window behave like an embedded view: lookup by
// title, style edits, placement, close requests and foreground focus.
package window

import (
	"errors"
	"fmt"
	"time"
)

// DefaultPollInterval is how often WaitForWindow queries the window registry.
const DefaultPollInterval = 500 * time.Millisecond

// ErrUnsupported is returned by NewSystem on platforms without a backend.
var ErrUnsupported = errors.New("native window management is not supported on this platform")

// Handle is an opaque native window reference. The zero value means no window.
type Handle uintptr

func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uintptr(h))
}

// Style is a native window style bitmask.
type Style uint32

// Chrome bits cleared by StripChrome.
const (
	StyleBorder     Style = 0x00800000
	StyleCaption    Style = 0x00C00000
	StyleThickFrame Style = 0x00040000

	ChromeMask = StyleCaption | StyleBorder | StyleThickFrame
)

// Rect is a top-left origin rectangle in screen pixels.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Point is a position in host UI space, which may use a bottom-left origin.
type Point struct {
	X float64
	Y float64
}

// System is the capability set the embedding controller needs from the
// platform window manager. FindByTitle returns a zero Handle and a nil error
// when no window matches.
type System interface {
	FindByTitle(title string) (Handle, error)
	Style(h Handle) (Style, error)
	SetStyle(h Handle, style Style) error
	// SetPosition moves and resizes h to rect and raises it above
	// non-topmost windows.
	SetPosition(h Handle, rect Rect) error
	// PostClose queues a close request without waiting for it to be handled.
	PostClose(h Handle) error
	Foreground() (Handle, error)
	SetForeground(h Handle) error
}

// Factory builds the platform System.
type Factory func() (System, error)

type FactoryKey struct{}

// SystemFactoryKey carries a Factory in a context.
var SystemFactoryKey = FactoryKey{}
