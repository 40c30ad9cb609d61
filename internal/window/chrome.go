package window

import (
	"fmt"
	"math"
)

// StripChrome clears the caption, border and resize frame bits of h so the
// window renders without native decorations. A zero handle is a no-op and a
// window that is already stripped is left untouched.
func StripChrome(sys System, h Handle) error {
	if h == 0 {
		return nil
	}

	style, err := sys.Style(h)
	if err != nil {
		return fmt.Errorf("read style of window %s: %w", h, err)
	}

	stripped := style &^ ChromeMask
	if stripped == style {
		return nil
	}

	if err := sys.SetStyle(h, stripped); err != nil {
		return fmt.Errorf("write style of window %s: %w", h, err)
	}
	return nil
}

// PlaceOver moves, resizes and raises h so it exactly covers rect. It is a
// single attempt; on failure the window keeps whatever geometry it had.
func PlaceOver(sys System, h Handle, rect Rect) error {
	if h == 0 {
		return nil
	}
	if rect.Empty() {
		return fmt.Errorf("target rectangle %dx%d has no area", rect.Width, rect.Height)
	}

	if err := sys.SetPosition(h, rect); err != nil {
		return fmt.Errorf("place window %s: %w", h, err)
	}
	return nil
}

// RectFromCorners converts corners reported by a bottom-left origin UI layer
// into a top-left origin screen rectangle. Corners are ordered bottom-left,
// top-left, top-right, bottom-right.
func RectFromCorners(corners [4]Point, screenHeight float64) Rect {
	topLeft := corners[1]

	return Rect{
		X:      int(math.Round(topLeft.X)),
		Y:      int(math.Round(screenHeight - topLeft.Y)),
		Width:  int(math.Round(distance(corners[0], corners[3]))),
		Height: int(math.Round(distance(corners[0], corners[1]))),
	}
}

// CornersOf returns the corners of a bottom-left origin box in the order
// expected by RectFromCorners.
func CornersOf(x, y, width, height float64) [4]Point {
	return [4]Point{
		{X: x, Y: y},
		{X: x, Y: y + height},
		{X: x + width, Y: y + height},
		{X: x + width, Y: y},
	}
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// CloseByTitle looks up the window titled title and posts it a close
// request. It returns the handle that was asked to close, or zero when no
// such window exists.
func CloseByTitle(sys System, title string) (Handle, error) {
	h, err := sys.FindByTitle(title)
	if err != nil {
		return 0, fmt.Errorf("find window %q: %w", title, err)
	}
	if h == 0 {
		return 0, nil
	}

	if err := sys.PostClose(h); err != nil {
		return h, fmt.Errorf("close window %q: %w", title, err)
	}
	return h, nil
}
