package detect

import (
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/postprocess"
	"github.com/swdee/go-screendetect/preprocess"
	"gocv.io/x/gocv"
)

// Options configures the ONNX detector
type Options struct {
	// ModelPath is the ONNX file exported from a YOLO v8 or later model
	ModelPath string
	// Classes are the class names in model order
	Classes []string
	// InputSize is the square input size the model was exported with
	InputSize int
	// Backend is "cpu" or "cuda"
	Backend string
	// FP16 runs the cuda backend in half precision
	FP16 bool
	// MaxObjects caps the detections returned per frame
	MaxObjects int
}

// ONNX runs a YOLO ONNX model with the OpenCV DNN module
type ONNX struct {
	mu      sync.Mutex
	net     gocv.Net
	opts    Options
	resizer *preprocess.Resizer
	input   gocv.Mat
	yolo    *postprocess.YOLO
}

// NewONNX loads the model and selects the inference backend
func NewONNX(opts Options) (*ONNX, error) {

	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, errors.Wrap(err, "error opening model")
	}

	if opts.InputSize <= 0 {
		opts.InputSize = 640
	}

	net := gocv.ReadNetFromONNX(opts.ModelPath)

	if net.Empty() {
		return nil, errors.Errorf("error loading model %s", opts.ModelPath)
	}

	switch opts.Backend {
	case "cuda":
		net.SetPreferableBackend(gocv.NetBackendCUDA)

		if opts.FP16 {
			net.SetPreferableTarget(gocv.NetTargetCUDAFP16)
		} else {
			net.SetPreferableTarget(gocv.NetTargetCUDA)
		}

	default:
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	params := postprocess.YOLODefaultParams()
	params.ObjectClassNum = len(opts.Classes)

	if opts.MaxObjects > 0 {
		params.MaxObjectNumber = opts.MaxObjects
	}

	return &ONNX{
		net:  net,
		opts: opts,
		// source size is set from the first frame
		resizer: preprocess.NewResizer(opts.InputSize, opts.InputSize,
			opts.InputSize, opts.InputSize),
		input: gocv.NewMat(),
		yolo:  postprocess.NewYOLO(params),
	}, nil
}

// Detect letterboxes img to the model input size, runs the network and
// decodes the output
func (d *ONNX) Detect(img gocv.Mat, conf, iou float32) ([]Detection, error) {

	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, errors.New("empty image")
	}

	d.resizer.LetterBoxResize(img, &d.input, preprocess.Gray)

	size := image.Pt(d.opts.InputSize, d.opts.InputSize)
	blob := gocv.BlobFromImage(d.input, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	out := d.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, errors.Wrap(err, "error reading model output")
	}

	d.yolo.Params.BoxThreshold = conf
	d.yolo.Params.NMSThreshold = iou

	results, err := d.yolo.DetectObjects(data, out.Size(), d.resizer)

	if err != nil {
		return nil, errors.Wrap(err, "error decoding model output")
	}

	return FromResults(results, d.opts.Classes), nil
}

// Device returns a short description of where inference runs
func (d *ONNX) Device() string {

	if d.opts.Backend == "cuda" {
		if d.opts.FP16 {
			return "cuda fp16"
		}
		return "cuda"
	}

	return "cpu"
}

// Close frees the network and working buffers
func (d *ONNX) Close() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	d.resizer.Close()
	d.input.Close()

	return d.net.Close()
}
