// Package detect defines the object detector contract consumed by the
// capture loop and an implementation running YOLO ONNX models through the
// OpenCV DNN module.
package detect

import (
	"fmt"
	"image"

	"github.com/swdee/go-screendetect/postprocess"
	"gocv.io/x/gocv"
)

// Detection is one object found in a frame
type Detection struct {
	// Box is the bounding box in frame pixel coordinates
	Box image.Rectangle
	// Class is the index into the model's class list
	Class int
	// ClassName is the name of the class
	ClassName string
	// Confidence is the score in the range 0 to 1
	Confidence float32
}

// Label returns the text drawn next to the detection box
func (d Detection) Label() string {
	return fmt.Sprintf("%s %.2f", d.ClassName, d.Confidence)
}

// Center returns the centre point of the box
func (d Detection) Center() image.Point {
	return image.Pt((d.Box.Min.X+d.Box.Max.X)/2, (d.Box.Min.Y+d.Box.Max.Y)/2)
}

// Detector finds objects in an image.  Implementations may take a variable
// amount of time per call.
type Detector interface {
	// Detect returns the objects in img scoring at least conf, with
	// overlapping boxes of the same class above iou suppressed
	Detect(img gocv.Mat, conf, iou float32) ([]Detection, error)
	// Close releases the model
	Close() error
}

// Func adapts a function to the Detector interface
type Func func(img gocv.Mat, conf, iou float32) ([]Detection, error)

// Detect calls f
func (f Func) Detect(img gocv.Mat, conf, iou float32) ([]Detection, error) {
	return f(img, conf, iou)
}

// Close does nothing
func (f Func) Close() error {
	return nil
}

// Nop is a Detector that never finds anything, used for capture only preview
type Nop struct{}

// Detect returns no detections
func (Nop) Detect(gocv.Mat, float32, float32) ([]Detection, error) {
	return nil, nil
}

// Close does nothing
func (Nop) Close() error {
	return nil
}

// className returns the name of class idx, or a generated name when the class
// list does not cover it
func className(classes []string, idx int) string {

	if idx >= 0 && idx < len(classes) {
		return classes[idx]
	}

	return fmt.Sprintf("class_%d", idx)
}

// FromResults converts decoded model results into detections
func FromResults(results []postprocess.DetectResult, classes []string) []Detection {

	dets := make([]Detection, 0, len(results))

	for _, r := range results {
		dets = append(dets, Detection{
			Box:        r.Box.Rect(),
			Class:      r.Class,
			ClassName:  className(classes, r.Class),
			Confidence: r.Probability,
		})
	}

	return dets
}
