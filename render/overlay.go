package render

import (
	"fmt"
	"image"

	"github.com/swdee/go-screendetect/detect"
)

const (
	boxThickness       = 2
	markerBoxThickness = 3
	centerDotRadius    = 4
	crosshairSize      = 20

	panelWidth      = 320
	panelLineHeight = 25
	panelTop        = 30
	panelPadding    = 10

	legendWidth   = 200
	legendRow     = 25
	legendSwatch  = 15
	legendPadding = 10

	labelOffsetX = 5
	labelOffsetY = 5
)

// Stats are the figures shown in the stats panel
type Stats struct {
	FPS        float64
	Detections int
	Resolution image.Point
	Device     string
	PID        int32
}

// Lines returns the stats panel text, one entry per line
func (s Stats) Lines() []string {
	return []string{
		fmt.Sprintf("FPS: %.1f", s.FPS),
		fmt.Sprintf("Detections: %d", s.Detections),
		fmt.Sprintf("Resolution: %dx%d", s.Resolution.X, s.Resolution.Y),
		fmt.Sprintf("Device: %s", s.Device),
		fmt.Sprintf("PID: %d", s.PID),
	}
}

// Overlay draws detections, a crosshair, the stats panel and the class
// legend over a captured frame
type Overlay struct {
	Palette   *Palette
	LabelFont Font
	PanelFont Font
}

// NewOverlay returns an Overlay using the given class palette
func NewOverlay(palette *Palette) *Overlay {
	return &Overlay{
		Palette:   palette,
		LabelFont: DefaultFont(),
		PanelFont: PanelFont(),
	}
}

// Draw renders everything onto c.  Labels are drawn only when showLabels is
// set, boxes are always drawn.
func (o *Overlay) Draw(c Canvas, dets []detect.Detection, stats Stats, showLabels bool) {
	o.Detections(c, dets, showLabels)
	o.Crosshair(c)
	o.StatsPanel(c, stats)
	o.Legend(c)
}

// Detections draws one box per detection in its class color with an optional
// label and a dot marking the box centre
func (o *Overlay) Detections(c Canvas, dets []detect.Detection, showLabels bool) {

	for _, det := range dets {

		style := o.Palette.Style(det.ClassName)

		thickness := boxThickness

		if style.Marker {
			thickness = markerBoxThickness
		}

		c.Rectangle(det.Box, style.Color, thickness)

		if showLabels {
			pos := image.Pt(det.Box.Min.X+labelOffsetX, det.Box.Min.Y-labelOffsetY)
			c.Text(det.Label(), pos, o.LabelFont.WithColor(style.Color))
		}

		c.Circle(det.Center(), centerDotRadius, style.Color, Filled)
	}
}

// Crosshair marks the frame centre
func (o *Overlay) Crosshair(c Canvas) {

	size := c.Size()
	cx, cy := size.X/2, size.Y/2

	c.Line(image.Pt(cx-crosshairSize, cy), image.Pt(cx+crosshairSize, cy), Green, 1)
	c.Line(image.Pt(cx, cy-crosshairSize), image.Pt(cx, cy+crosshairSize), Green, 1)
}

// StatsPanel draws the stats in the top left corner
func (o *Overlay) StatsPanel(c Canvas, stats Stats) {

	lines := stats.Lines()
	height := panelTop + (len(lines)-1)*panelLineHeight + panelPadding

	c.Rectangle(image.Rect(0, 0, panelWidth, height), Black, Filled)

	for i, line := range lines {
		font := o.PanelFont

		// fps stands out from the rest
		if i == 0 {
			font = font.WithColor(Green)
		}

		c.Text(line, image.Pt(panelPadding, panelTop+i*panelLineHeight), font)
	}
}

// Legend draws a swatch and name for each class in the bottom left corner
func (o *Overlay) Legend(c Canvas) {

	styles := o.Palette.Styles()

	if len(styles) == 0 {
		return
	}

	size := c.Size()
	height := len(styles)*legendRow + 2*legendPadding
	top := size.Y - height

	c.Rectangle(image.Rect(0, top, legendWidth, size.Y), Black, Filled)

	for i, style := range styles {
		y := top + legendPadding + i*legendRow

		swatch := image.Rect(legendPadding, y, legendPadding+legendSwatch, y+legendSwatch)
		c.Rectangle(swatch, style.Color, Filled)

		c.Text(style.Name, image.Pt(legendPadding+legendSwatch+10, y+legendSwatch-2),
			o.LabelFont.WithColor(White))
	}
}
