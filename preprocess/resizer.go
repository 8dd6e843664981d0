// Package preprocess prepares captured frames for the detection model.
package preprocess

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Gray is the letterbox padding color YOLO models are trained with
var Gray = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Resizer scales frames of a known size into the square model input while
// keeping their aspect ratio, and maps model coordinates back to the frame
type Resizer struct {
	// srcWidth and srcHeight are the dimensions of the frames being resized
	srcWidth  int
	srcHeight int
	// destWidth and destHeight are the model input dimensions
	destWidth  int
	destHeight int
	// scaled is reused between frames to hold the resized image before
	// padding is added
	scaled gocv.Mat
	// letterbox parameters
	xPad  int
	yPad  int
	scale float32
	// size of the image content inside the padded result
	innerW int
	innerH int
}

// NewResizer returns a resizer for frames of srcWidth x srcHeight being fed to
// a model taking destWidth x destHeight input
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		destWidth:  destWidth,
		destHeight: destHeight,
		scaled:     gocv.NewMat(),
	}

	r.Reset(srcWidth, srcHeight)

	return r
}

// Reset recalculates the letterbox parameters for a new source frame size.
// It does nothing when the size is unchanged.
func (r *Resizer) Reset(srcWidth, srcHeight int) {

	if r.srcWidth == srcWidth && r.srcHeight == srcHeight && r.scale != 0 {
		return
	}

	r.srcWidth = srcWidth
	r.srcHeight = srcHeight

	scaleW := float32(r.destWidth) / float32(srcWidth)
	scaleH := float32(r.destHeight) / float32(srcHeight)

	r.scale = scaleH
	r.innerW = int(float32(srcWidth) * scaleH)
	r.innerH = r.destHeight

	if scaleW < scaleH {
		r.scale = scaleW
		r.innerW = r.destWidth
		r.innerH = int(float32(srcHeight) * scaleW)
	}

	r.xPad = (r.destWidth - r.innerW) / 2
	r.yPad = (r.destHeight - r.innerH) / 2
}

// Close frees the intermediate Mat
func (r *Resizer) Close() error {
	return r.scaled.Close()
}

// LetterBoxResize writes src into dest at the model input size, centering the
// scaled image and filling the borders with pad
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, pad color.RGBA) {

	r.Reset(src.Cols(), src.Rows())

	gocv.Resize(src, &r.scaled, image.Pt(r.innerW, r.innerH), 0, 0,
		gocv.InterpolationLinear)

	top := r.yPad
	bottom := r.destHeight - r.innerH - r.yPad
	left := r.xPad
	right := r.destWidth - r.innerW - r.xPad

	gocv.CopyMakeBorder(r.scaled, dest, top, bottom, left, right,
		gocv.BorderConstant, pad)
}

// ToSource maps a point in model input coordinates back into the source
// frame
func (r *Resizer) ToSource(x, y float32) (float32, float32) {
	return (x - float32(r.xPad)) / r.scale, (y - float32(r.yPad)) / r.scale
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}

// DestSize returns the model input dimensions
func (r *Resizer) DestSize() image.Point {
	return image.Pt(r.destWidth, r.destHeight)
}
