// Package locate resolves a running process by name to the top level window
// it renders into and works out the screen region covering that window's
// client area.
package locate

import (
	"fmt"
	"image"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	// ErrProcessNotFound is returned when no running process matches the
	// target name
	ErrProcessNotFound = errors.New("process not found")
	// ErrWindowNotFound is returned when the process owns no visible top
	// level window
	ErrWindowNotFound = errors.New("no visible window for process")
	// ErrInvalidHandle is returned when a window handle no longer refers to
	// a live window
	ErrInvalidHandle = errors.New("invalid window handle")
	// ErrUnsupported is returned on platforms without a window system backend
	ErrUnsupported = errors.New("window enumeration not supported on this platform")
)

// Handle is the platform window identifier, a HWND on Windows or an X11
// window id on Linux
type Handle uintptr

// Process is an entry in the process table
type Process struct {
	PID  int32
	Name string
}

// Window describes a top level window
type Window struct {
	Handle  Handle
	PID     int32
	Title   string
	Visible bool
}

// Bounds are the raw window measurements reported by the window system
type Bounds struct {
	// Outer is the full window rectangle including decorations in screen
	// coordinates
	Outer image.Rectangle
	// Client is the size of the rendering surface
	Client image.Point
}

// Target is a process and the window it was resolved to
type Target struct {
	PID    int32
	Name   string
	Window Window
}

// String returns a printable summary of the target
func (t Target) String() string {
	return fmt.Sprintf("%s (pid %d, window %#x)", t.Name, t.PID, uintptr(t.Window.Handle))
}

// ProcessTable enumerates running processes
type ProcessTable interface {
	// Processes returns a snapshot of the running processes.  Entries whose
	// name could not be read are omitted.
	Processes() ([]Process, error)
	// Exists reports whether pid is present in the live process table
	Exists(pid int32) (bool, error)
}

// WindowSystem enumerates top level windows and reports their geometry
type WindowSystem interface {
	// Windows returns all top level windows in enumeration order
	Windows() ([]Window, error)
	// Bounds returns the outer and client measurements of a window
	Bounds(h Handle) (Bounds, error)
	// Close releases any connection held to the window system
	Close() error
}

// Locator combines a process table and window system to find and measure a
// target window
type Locator struct {
	procs   ProcessTable
	windows WindowSystem
}

// New returns a Locator backed by the given process table and window system
func New(procs ProcessTable, windows WindowSystem) *Locator {
	return &Locator{
		procs:   procs,
		windows: windows,
	}
}

// FindTargetProcess returns the first running process whose name equals name,
// ignoring case
func (l *Locator) FindTargetProcess(name string) (Process, error) {

	procs, err := l.procs.Processes()

	if err != nil {
		return Process{}, errors.Wrap(err, "error listing processes")
	}

	proc, ok := lo.Find(procs, func(p Process) bool {
		return strings.EqualFold(p.Name, name)
	})

	if !ok {
		return Process{}, errors.Wrapf(ErrProcessNotFound, "%q", name)
	}

	return proc, nil
}

// FindWindowForProcess returns the first visible top level window owned by
// pid.  Targets are expected to have a single window so the choice of "first"
// is arbitrary.
func (l *Locator) FindWindowForProcess(pid int32) (Window, error) {

	wins, err := l.windows.Windows()

	if err != nil {
		return Window{}, errors.Wrap(err, "error listing windows")
	}

	win, ok := lo.Find(wins, func(w Window) bool {
		return w.Visible && w.PID == pid
	})

	if !ok {
		return Window{}, errors.Wrapf(ErrWindowNotFound, "pid %d", pid)
	}

	return win, nil
}

// ComputeCaptureRegion measures the window and returns the region covering
// its client area in screen coordinates
func (l *Locator) ComputeCaptureRegion(h Handle) (Region, error) {

	b, err := l.windows.Bounds(h)

	if err != nil {
		return Region{}, errors.Wrapf(err, "error measuring window %#x", uintptr(h))
	}

	return RegionFromBounds(b)
}

// Locate finds the named process and its window
func (l *Locator) Locate(name string) (Target, error) {

	proc, err := l.FindTargetProcess(name)

	if err != nil {
		return Target{}, err
	}

	win, err := l.FindWindowForProcess(proc.PID)

	if err != nil {
		return Target{}, err
	}

	return Target{
		PID:    proc.PID,
		Name:   proc.Name,
		Window: win,
	}, nil
}

// Alive reports whether pid is still present in the process table.  A
// process table that cannot be queried counts as the process being gone.
func (l *Locator) Alive(pid int32) bool {

	ok, err := l.procs.Exists(pid)

	if err != nil {
		return false
	}

	return ok
}

// VisibleWindows returns every visible top level window that has a title
func (l *Locator) VisibleWindows() ([]Window, error) {

	wins, err := l.windows.Windows()

	if err != nil {
		return nil, errors.Wrap(err, "error listing windows")
	}

	return lo.Filter(wins, func(w Window, _ int) bool {
		return w.Visible && strings.TrimSpace(w.Title) != ""
	}), nil
}

// Close releases the window system connection
func (l *Locator) Close() error {
	return l.windows.Close()
}

// NewSystemLocator returns a Locator reading the operating system process
// table and window system
func NewSystemLocator() (*Locator, error) {

	windows, err := NewWindowSystem()

	if err != nil {
		return nil, err
	}

	return New(NewProcessTable(), windows), nil
}

// MatchWindows returns the windows whose title contains any of the terms,
// ignoring case.  It is used to suggest candidates when a target is not found.
func MatchWindows(wins []Window, terms ...string) []Window {
	return lo.Filter(wins, func(w Window, _ int) bool {
		title := strings.ToLower(w.Title)

		return lo.SomeBy(terms, func(term string) bool {
			term = strings.ToLower(strings.TrimSpace(term))
			return term != "" && strings.Contains(title, term)
		})
	})
}
