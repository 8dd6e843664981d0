package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Filled is passed as thickness to draw a solid shape
const Filled = -1

// Canvas is a drawing surface.  The overlay code draws through it so it can
// be exercised without an image.
type Canvas interface {
	// Size returns the width and height of the surface
	Size() image.Point
	// Rectangle draws an outlined rectangle, or a solid one when thickness
	// is Filled
	Rectangle(r image.Rectangle, clr color.RGBA, thickness int)
	// Line draws a straight line
	Line(from, to image.Point, clr color.RGBA, thickness int)
	// Circle draws a circle, solid when thickness is Filled
	Circle(center image.Point, radius int, clr color.RGBA, thickness int)
	// Text draws text with its baseline starting at org
	Text(text string, org image.Point, font Font)
	// TextSize returns the width and height text occupies
	TextSize(text string, font Font) image.Point
}

// MatCanvas draws onto a gocv Mat
type MatCanvas struct {
	img *gocv.Mat
}

// NewMatCanvas returns a Canvas drawing onto img
func NewMatCanvas(img *gocv.Mat) *MatCanvas {
	return &MatCanvas{img: img}
}

// Size returns the image dimensions
func (m *MatCanvas) Size() image.Point {
	return image.Pt(m.img.Cols(), m.img.Rows())
}

// Rectangle draws a rectangle
func (m *MatCanvas) Rectangle(r image.Rectangle, clr color.RGBA, thickness int) {
	gocv.Rectangle(m.img, r, clr, thickness)
}

// Line draws a line
func (m *MatCanvas) Line(from, to image.Point, clr color.RGBA, thickness int) {
	gocv.Line(m.img, from, to, clr, thickness)
}

// Circle draws a circle
func (m *MatCanvas) Circle(center image.Point, radius int, clr color.RGBA, thickness int) {
	gocv.Circle(m.img, center, radius, clr, thickness)
}

// Text draws text using the font settings
func (m *MatCanvas) Text(text string, org image.Point, font Font) {
	gocv.PutTextWithParams(m.img, text, org, font.Face, font.Scale, font.Color,
		font.Thickness, font.LineType, false)
}

// TextSize measures text using the font settings
func (m *MatCanvas) TextSize(text string, font Font) image.Point {
	return gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)
}
