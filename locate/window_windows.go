//go:build windows

package locate

import (
	"image"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetClientRect            = user32.NewProc("GetClientRect")
)

var (
	// enumCallback is created once as the runtime limits the number of
	// callbacks a process may allocate
	enumCallback     uintptr
	enumCallbackOnce sync.Once
)

// collectHandle appends each enumerated window to the slice passed as lparam
func collectHandle(hwnd uintptr, lparam uintptr) uintptr {
	handles := (*[]Handle)(unsafe.Pointer(lparam))
	*handles = append(*handles, Handle(hwnd))
	return 1
}

// win32Windows is the WindowSystem backed by user32
type win32Windows struct{}

// NewWindowSystem returns the Win32 window system
func NewWindowSystem() (WindowSystem, error) {

	if err := user32.Load(); err != nil {
		return nil, errors.Wrap(err, "error loading user32")
	}

	enumCallbackOnce.Do(func() {
		enumCallback = windows.NewCallback(collectHandle)
	})

	return win32Windows{}, nil
}

// Close is a no-op, user32 holds no per-connection state
func (win32Windows) Close() error {
	return nil
}

// handles enumerates all top level windows into a slice in Z order
func (win32Windows) handles() ([]Handle, error) {

	var handles []Handle

	r, _, err := procEnumWindows.Call(enumCallback, uintptr(unsafe.Pointer(&handles)))

	if r == 0 {
		return nil, errors.Wrap(err, "EnumWindows failed")
	}

	return handles, nil
}

func windowText(h Handle) string {

	n, _, _ := procGetWindowTextLengthW.Call(uintptr(h))

	if n == 0 {
		return ""
	}

	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))

	return windows.UTF16ToString(buf)
}

// Windows returns the top level windows
func (s win32Windows) Windows() ([]Window, error) {

	handles, err := s.handles()

	if err != nil {
		return nil, err
	}

	out := make([]Window, 0, len(handles))

	for _, h := range handles {
		var pid uint32
		procGetWindowThreadProcessId.Call(uintptr(h), uintptr(unsafe.Pointer(&pid)))

		visible, _, _ := procIsWindowVisible.Call(uintptr(h))

		out = append(out, Window{
			Handle:  h,
			PID:     int32(pid),
			Title:   windowText(h),
			Visible: visible != 0,
		})
	}

	return out, nil
}

// Bounds returns the window rectangle and client size
func (win32Windows) Bounds(h Handle) (Bounds, error) {

	if ok, _, _ := procIsWindow.Call(uintptr(h)); ok == 0 {
		return Bounds{}, ErrInvalidHandle
	}

	var outer, client windows.Rect

	if r, _, err := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&outer))); r == 0 {
		return Bounds{}, errors.Wrap(ErrInvalidHandle, err.Error())
	}

	if r, _, err := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&client))); r == 0 {
		return Bounds{}, errors.Wrap(ErrInvalidHandle, err.Error())
	}

	return Bounds{
		Outer: image.Rect(int(outer.Left), int(outer.Top), int(outer.Right), int(outer.Bottom)),
		Client: image.Pt(int(client.Right-client.Left),
			int(client.Bottom-client.Top)),
	}, nil
}
