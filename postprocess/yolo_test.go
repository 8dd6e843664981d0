package postprocess

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/preprocess"
	"go.viam.com/test"
)

// anchor is one column of a synthetic [1, 4+classes, anchors] tensor
type anchor struct {
	cx, cy, w, h float32
	scores       []float32
}

func packTensor(anchors []anchor, transposed bool) ([]float32, []int) {

	classes := len(anchors[0].scores)
	attrs := 4 + classes
	data := make([]float32, attrs*len(anchors))

	for i, a := range anchors {
		vals := append([]float32{a.cx, a.cy, a.w, a.h}, a.scores...)

		for j, v := range vals {
			if transposed {
				data[i*attrs+j] = v
			} else {
				data[j*len(anchors)+i] = v
			}
		}
	}

	if transposed {
		return data, []int{1, len(anchors), attrs}
	}

	return data, []int{1, attrs, len(anchors)}
}

var testAnchors = []anchor{
	{100, 100, 40, 40, []float32{0.9, 0.1}},
	// overlaps the first box and is suppressed
	{102, 101, 40, 40, []float32{0.8, 0.05}},
	{300, 300, 20, 20, []float32{0.1, 0.7}},
	// below threshold
	{500, 500, 10, 10, []float32{0.2, 0.3}},
	// overlaps the first box but is a different class
	{100, 100, 40, 40, []float32{0.0, 0.6}},
}

func TestYOLODetectObjects(t *testing.T) {

	resizer := preprocess.NewResizer(640, 640, 640, 640)
	defer resizer.Close()

	for _, transposed := range []bool{false, true} {
		data, dims := packTensor(testAnchors, transposed)

		yolo := NewYOLO(YOLOParams{
			BoxThreshold:    0.4,
			NMSThreshold:    0.5,
			ObjectClassNum:  2,
			MaxObjectNumber: 10,
		})

		results, err := yolo.DetectObjects(data, dims, resizer)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, results, test.ShouldHaveLength, 3)

		test.That(t, results[0].Class, test.ShouldEqual, 0)
		test.That(t, results[0].Probability, test.ShouldAlmostEqual, float32(0.9))
		test.That(t, results[0].Box, test.ShouldResemble, BoxRect{Left: 80, Top: 80, Right: 120, Bottom: 120})

		test.That(t, results[1].Class, test.ShouldEqual, 1)
		test.That(t, results[1].Box, test.ShouldResemble, BoxRect{Left: 290, Top: 290, Right: 310, Bottom: 310})

		test.That(t, results[2].Class, test.ShouldEqual, 1)
		test.That(t, results[2].Probability, test.ShouldAlmostEqual, float32(0.6))

		test.That(t, results[0].ID, test.ShouldEqual, int64(1))
	}
}

func TestYOLOInferClassCount(t *testing.T) {

	resizer := preprocess.NewResizer(640, 640, 640, 640)
	defer resizer.Close()

	// real outputs have far more anchors than attributes
	anchors := append([]anchor{}, testAnchors...)

	for i := 0; i < 5; i++ {
		anchors = append(anchors, anchor{0, 0, 0, 0, []float32{0, 0}})
	}

	data, dims := packTensor(anchors, false)

	yolo := NewYOLO(YOLOParams{BoxThreshold: 0.4, NMSThreshold: 0.5})

	results, err := yolo.DetectObjects(data, dims, resizer)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 3)
}

func TestYOLOMaxObjects(t *testing.T) {

	resizer := preprocess.NewResizer(640, 640, 640, 640)
	defer resizer.Close()

	data, dims := packTensor(testAnchors, false)

	yolo := NewYOLO(YOLOParams{BoxThreshold: 0.4, NMSThreshold: 0.5, ObjectClassNum: 2, MaxObjectNumber: 1})

	results, err := yolo.DetectObjects(data, dims, resizer)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 1)
	test.That(t, results[0].Probability, test.ShouldAlmostEqual, float32(0.9))
}

func TestYOLOUnletterbox(t *testing.T) {

	// 1280x720 frame is scaled by 0.5 and padded 140 pixels top and bottom
	resizer := preprocess.NewResizer(1280, 720, 640, 640)
	defer resizer.Close()

	data, dims := packTensor([]anchor{
		{320, 320, 100, 50, []float32{0.95}},
		// box reaching into the padding is clamped to the frame
		{20, 150, 60, 40, []float32{0.5}},
	}, false)

	yolo := NewYOLO(YOLOParams{BoxThreshold: 0.4, NMSThreshold: 0.5, ObjectClassNum: 1})

	results, err := yolo.DetectObjects(data, dims, resizer)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 2)
	test.That(t, results[0].Box, test.ShouldResemble, BoxRect{Left: 540, Top: 310, Right: 740, Bottom: 410})
	test.That(t, results[1].Box, test.ShouldResemble, BoxRect{Left: 0, Top: 0, Right: 100, Bottom: 60})
}

func TestYOLOShapeErrors(t *testing.T) {

	resizer := preprocess.NewResizer(640, 640, 640, 640)
	defer resizer.Close()

	yolo := NewYOLO(YOLOParams{BoxThreshold: 0.4, ObjectClassNum: 2})

	_, err := yolo.DetectObjects(make([]float32, 10), []int{1, 10}, resizer)
	test.That(t, err, test.ShouldNotBeNil)

	_, traced := err.(interface{ StackTrace() errors.StackTrace })
	test.That(t, traced, test.ShouldBeTrue)

	_, err = yolo.DetectObjects(make([]float32, 10), []int{1, 7, 8400}, resizer)
	test.That(t, err, test.ShouldNotBeNil)

	// shape claims more data than provided
	_, err = yolo.DetectObjects(make([]float32, 10), []int{1, 6, 8400}, resizer)
	test.That(t, err, test.ShouldNotBeNil)

	results, err := yolo.DetectObjects(make([]float32, 6*10), []int{1, 6, 10}, resizer)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldBeEmpty)
}

func TestIoU(t *testing.T) {
	a := BoxRect{Left: 0, Top: 0, Right: 9, Bottom: 9}

	test.That(t, IoU(a, a), test.ShouldAlmostEqual, float32(1))
	test.That(t, IoU(a, BoxRect{Left: 20, Top: 20, Right: 29, Bottom: 29}), test.ShouldEqual, float32(0))
	test.That(t, IoU(a, BoxRect{Left: 5, Top: 0, Right: 14, Bottom: 9}), test.ShouldAlmostEqual, float32(50.0/150.0), 1e-6)
}
