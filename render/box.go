package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-screendetect/detect"
)

// boxLabel is a label drawn after all boxes so it sits on top
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// DetectionBoxes renders the bounding boxes around the objects detected with
// a filled label above each box
func DetectionBoxes(c Canvas, dets []detect.Detection, palette *Palette,
	font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(dets))

	for _, det := range dets {

		useClr := palette.Style(det.ClassName).Color
		c.Rectangle(det.Box, useClr, lineThickness)

		text := det.Label()
		textSize := c.TextSize(text, font)

		// Calculate the alignment of text label
		var centerX int

		switch font.Alignment {
		case Center:
			centerX = (det.Box.Min.X + det.Box.Max.X) / 2

		case Right:
			centerX = det.Box.Max.X - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = det.Box.Min.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
		}

		labelPosition := image.Pt(centerX-textSize.X/2, det.Box.Min.Y-font.BottomPad)

		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			det.Box.Min.Y-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, det.Box.Min.Y)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	for _, box := range boxLabels {
		c.Rectangle(box.rect, box.clr, Filled)
		c.Text(box.text, box.textPos, font)
	}
}
