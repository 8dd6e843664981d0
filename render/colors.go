package render

import (
	"image/color"

	"github.com/samber/lo"
)

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// fallbackColors are handed out to classes without a configured style
var fallbackColors = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},   // #FF3838
	{R: 255, G: 112, B: 31, A: 255},  // #FF701F
	{R: 255, G: 178, B: 29, A: 255},  // #FFB21D
	{R: 72, G: 249, B: 10, A: 255},   // #48F90A
	{R: 0, G: 212, B: 187, A: 255},   // #00D4BB
	{R: 0, G: 194, B: 255, A: 255},   // #00C2FF
	{R: 100, G: 115, B: 255, A: 255}, // #6473FF
	{R: 203, G: 56, B: 255, A: 255},  // #CB38FF
}

// ClassStyle defines how detections of a class are drawn
type ClassStyle struct {
	Name  string
	Color color.RGBA
	// Marker classes are drawn with a heavier box
	Marker bool
}

// Palette maps class names to their styles
type Palette struct {
	styles []ClassStyle
	byName map[string]ClassStyle
}

// NewPalette returns a palette for the given styles in legend order
func NewPalette(styles []ClassStyle) *Palette {
	return &Palette{
		styles: styles,
		byName: lo.KeyBy(styles, func(s ClassStyle) string { return s.Name }),
	}
}

// PaletteFor builds a palette for class names with no configured colors
func PaletteFor(names []string) *Palette {

	styles := make([]ClassStyle, len(names))

	for i, name := range names {
		styles[i] = ClassStyle{
			Name:  name,
			Color: fallbackColors[i%len(fallbackColors)],
		}
	}

	return NewPalette(styles)
}

// Style returns the style for class name.  Unknown classes are drawn green.
func (p *Palette) Style(name string) ClassStyle {

	if s, ok := p.byName[name]; ok {
		return s
	}

	return ClassStyle{Name: name, Color: Green}
}

// Styles returns the styles in legend order
func (p *Palette) Styles() []ClassStyle {
	return p.styles
}
