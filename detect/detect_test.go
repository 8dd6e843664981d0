package detect

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/swdee/go-screendetect/postprocess"
	"go.viam.com/test"
	"gocv.io/x/gocv"
)

func TestDetectionLabel(t *testing.T) {
	d := Detection{
		Box:        image.Rect(10, 10, 50, 50),
		ClassName:  "A",
		Confidence: 0.82,
	}

	test.That(t, d.Label(), test.ShouldEqual, "A 0.82")
	test.That(t, d.Center(), test.ShouldResemble, image.Pt(30, 30))
}

func TestFromResults(t *testing.T) {
	results := []postprocess.DetectResult{
		{Class: 1, Box: postprocess.BoxRect{Left: 1, Top: 2, Right: 3, Bottom: 4}, Probability: 0.5},
		{Class: 7, Box: postprocess.BoxRect{Left: 5, Top: 6, Right: 7, Bottom: 8}, Probability: 0.9},
	}

	dets := FromResults(results, []string{"A", "B"})

	test.That(t, dets, test.ShouldHaveLength, 2)
	test.That(t, dets[0].ClassName, test.ShouldEqual, "B")
	test.That(t, dets[0].Box, test.ShouldResemble, image.Rect(1, 2, 3, 4))
	test.That(t, dets[1].ClassName, test.ShouldEqual, "class_7")
}

func TestFuncAndNop(t *testing.T) {
	img := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer img.Close()

	var gotConf, gotIoU float32

	var det Detector = Func(func(_ gocv.Mat, conf, iou float32) ([]Detection, error) {
		gotConf, gotIoU = conf, iou
		return []Detection{{ClassName: "A"}}, nil
	})

	dets, err := det.Detect(img, 0.4, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 1)
	test.That(t, gotConf, test.ShouldEqual, float32(0.4))
	test.That(t, gotIoU, test.ShouldEqual, float32(0.5))
	test.That(t, det.Close(), test.ShouldBeNil)

	dets, err = Nop{}.Detect(img, 0.4, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldBeEmpty)
}

func TestNewONNXMissingModel(t *testing.T) {
	_, err := NewONNX(Options{ModelPath: filepath.Join(t.TempDir(), "missing.onnx")})
	test.That(t, err, test.ShouldNotBeNil)
}
