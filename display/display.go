// Package display shows annotated frames in a window and reads single key
// commands from it.
package display

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Surface shows frames and returns keypresses
type Surface interface {
	// Show displays img
	Show(img gocv.Mat) error
	// PollKey waits at most wait for a keypress, returning -1 if none
	PollKey(wait time.Duration) int
	// Resize sets the window size
	Resize(width, height int)
	// Close destroys the window
	Close() error
}

// Window is a Surface backed by an OpenCV HighGUI window
type Window struct {
	win *gocv.Window
}

// NewWindow opens a named window
func NewWindow(name string) *Window {
	return &Window{
		win: gocv.NewWindow(name),
	}
}

// Show displays img
func (w *Window) Show(img gocv.Mat) error {
	w.win.IMShow(img)
	return nil
}

// PollKey waits for a keypress.  HighGUI only processes window events while
// waiting so the wait is at least one millisecond.
func (w *Window) PollKey(wait time.Duration) int {

	ms := int(wait / time.Millisecond)

	if ms < 1 {
		ms = 1
	}

	return w.win.WaitKey(ms)
}

// Resize sets the window size
func (w *Window) Resize(width, height int) {
	w.win.ResizeWindow(width, height)
}

// Close destroys the window
func (w *Window) Close() error {
	return w.win.Close()
}

// Headless is a Surface that shows nothing, for running the loop without a
// display
type Headless struct{}

// Show does nothing
func (Headless) Show(gocv.Mat) error {
	return nil
}

// PollKey sleeps for wait and reports no key
func (Headless) PollKey(wait time.Duration) int {
	time.Sleep(wait)
	return -1
}

// Resize does nothing
func (Headless) Resize(int, int) {}

// Close does nothing
func (Headless) Close() error {
	return nil
}

// ScaledSize returns size multiplied by factor, never smaller than one pixel
func ScaledSize(size image.Point, factor float64) image.Point {

	w := int(float64(size.X) * factor)
	h := int(float64(size.Y) * factor)

	if w < 1 {
		w = 1
	}

	if h < 1 {
		h = 1
	}

	return image.Pt(w, h)
}

// Scale writes src resized by factor into dst
func Scale(src gocv.Mat, dst *gocv.Mat, factor float64) {

	if factor == 1 {
		src.CopyTo(dst)
		return
	}

	size := ScaledSize(image.Pt(src.Cols(), src.Rows()), factor)
	gocv.Resize(src, dst, size, 0, 0, gocv.InterpolationArea)
}
