package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Alignment positions a label horizontally against its box
type Alignment int

const (
	Left Alignment = iota + 1
	Center
	Right
)

// Font holds the Hershey font settings used for every piece of overlay text
// along with the padding placed around filled labels
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType

	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int

	Alignment Alignment
}

// DefaultFont is the small anti-aliased font used for box labels and the
// legend
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// PanelFont is the heavier font used for the stats panel
func PanelFont() Font {
	f := DefaultFont()
	f.Scale = 0.6
	f.Thickness = 2
	return f
}

// WithColor returns a copy of f drawing in clr
func (f Font) WithColor(clr color.RGBA) Font {
	f.Color = clr
	return f
}

// WithAlignment returns a copy of f aligned with a
func (f Font) WithAlignment(a Alignment) Font {
	f.Alignment = a
	return f
}
