//go:build !windows

package window

// NewSystem reports ErrUnsupported outside Windows.
func NewSystem() (System, error) {
	return nil, ErrUnsupported
}
