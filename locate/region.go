package locate

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// Region is a pixel rectangle in screen coordinates that frames are grabbed
// from
type Region struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Rect returns the region as an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Size returns the width and height of the region
func (r Region) Size() image.Point {
	return image.Pt(r.Width, r.Height)
}

// Empty reports whether the region covers no pixels
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Matches reports whether an image of the given dimensions was grabbed from
// a region of this size
func (r Region) Matches(width, height int) bool {
	return r.Width == width && r.Height == height
}

// String returns the region as "WxH+X+Y"
func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.Left, r.Top)
}

// RegionFromBounds derives the client area region from the outer window
// rectangle and the client size.
//
// Side borders are assumed to be equal, the bottom border is assumed to match
// them and whatever remains above the client area is treated as the title bar.
// Window managers with asymmetric decorations will produce an offset region.
func RegionFromBounds(b Bounds) (Region, error) {

	outerW := b.Outer.Dx()
	outerH := b.Outer.Dy()

	if b.Client.X <= 0 || b.Client.Y <= 0 {
		return Region{}, errors.Wrapf(ErrInvalidHandle, "empty client area %dx%d",
			b.Client.X, b.Client.Y)
	}

	if outerW < b.Client.X || outerH < b.Client.Y {
		return Region{}, errors.Wrapf(ErrInvalidHandle,
			"client area %dx%d larger than window %dx%d",
			b.Client.X, b.Client.Y, outerW, outerH)
	}

	border := (outerW - b.Client.X) / 2
	titleBar := outerH - b.Client.Y - border

	return Region{
		Left:   b.Outer.Min.X + border,
		Top:    b.Outer.Min.Y + titleBar,
		Width:  b.Client.X,
		Height: b.Client.Y,
	}, nil
}
