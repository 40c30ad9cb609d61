//go:build windows

package window

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	wmClose = 0x0010

	swpFrameChanged = 0x0020
	swpShowWindow   = 0x0040
)

var (
	// GWL_STYLE and HWND_TOPMOST are negative in the Win32 headers.
	gwlStyle    int32 = -16
	hwndTopmost int32 = -1
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procFindWindowW         = user32.NewProc("FindWindowW")
	procGetWindowLongW      = user32.NewProc("GetWindowLongW")
	procSetWindowLongW      = user32.NewProc("SetWindowLongW")
	procSetWindowPos        = user32.NewProc("SetWindowPos")
	procPostMessageW        = user32.NewProc("PostMessageW")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")

	kernel32         = windows.NewLazySystemDLL("kernel32.dll")
	procSetLastError = kernel32.NewProc("SetLastError")
)

type win32System struct{}

// NewSystem returns the user32 backed System.
func NewSystem() (System, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("load user32.dll: %w", err)
	}
	return win32System{}, nil
}

func (win32System) FindByTitle(title string) (Handle, error) {
	name, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, err
	}
	r1, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(name)))
	return Handle(r1), nil
}

func (win32System) Style(h Handle) (Style, error) {
	r1, lastErr := callClearingLastError(procGetWindowLongW, uintptr(h), uintptr(gwlStyle))
	if r1 == 0 && failed(lastErr) {
		return 0, callError("GetWindowLongW", lastErr)
	}
	return Style(uint32(r1)), nil
}

func (win32System) SetStyle(h Handle, style Style) error {
	r1, lastErr := callClearingLastError(procSetWindowLongW, uintptr(h), uintptr(gwlStyle), uintptr(style))
	if r1 == 0 && failed(lastErr) {
		return callError("SetWindowLongW", lastErr)
	}
	return nil
}

func (win32System) SetPosition(h Handle, rect Rect) error {
	r1, _, lastErr := procSetWindowPos.Call(
		uintptr(h),
		uintptr(hwndTopmost),
		uintptr(int32(rect.X)),
		uintptr(int32(rect.Y)),
		uintptr(int32(rect.Width)),
		uintptr(int32(rect.Height)),
		swpFrameChanged|swpShowWindow,
	)
	if r1 == 0 {
		return callError("SetWindowPos", lastErr)
	}
	return nil
}

func (win32System) PostClose(h Handle) error {
	r1, _, lastErr := procPostMessageW.Call(uintptr(h), wmClose, 0, 0)
	if r1 == 0 {
		return callError("PostMessageW", lastErr)
	}
	return nil
}

func (win32System) Foreground() (Handle, error) {
	r1, _, _ := procGetForegroundWindow.Call()
	return Handle(r1), nil
}

func (win32System) SetForeground(h Handle) error {
	if h == 0 {
		return nil
	}
	r1, _, lastErr := procSetForegroundWindow.Call(uintptr(h))
	if r1 == 0 {
		return callError("SetForegroundWindow", lastErr)
	}
	return nil
}

// callClearingLastError resets the thread's last error before calling proc.
// GetWindowLongW and SetWindowLongW return 0 both on failure and for a
// previous value of 0; only a non-zero last error marks a failure. The last
// error is per thread, so the goroutine stays on one thread for both calls.
func callClearingLastError(proc *windows.LazyProc, args ...uintptr) (uintptr, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	_, _, _ = procSetLastError.Call(0)
	r1, _, lastErr := proc.Call(args...)
	return r1, lastErr
}

func failed(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno != 0
	}
	return err != nil
}

func callError(op string, err error) error {
	if !failed(err) {
		return fmt.Errorf("%s failed", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
