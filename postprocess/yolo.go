// Package postprocess decodes raw detection model output into bounding boxes.
package postprocess

import (
	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/preprocess"
)

// YOLO decodes the single output tensor produced by anchor free YOLO exports
// (v8 and later) to ONNX.  The tensor has shape [1, 4+classes, anchors] with
// each anchor holding cx, cy, w, h followed by one score per class.
type YOLO struct {
	// Params are the decoding parameters
	Params YOLOParams
	// idGen provides the next number for each detection result ID
	idGen *IDGenerator
}

// YOLOParams defines the parameters used for decoding
type YOLOParams struct {
	// BoxThreshold is the minimum class score for an anchor to be kept
	BoxThreshold float32
	// NMSThreshold is the maximum IoU two boxes of the same class may have
	// before the lower scoring one is suppressed
	NMSThreshold float32
	// ObjectClassNum is the number of classes the model was trained with,
	// zero means infer it from the tensor shape
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects returned
	MaxObjectNumber int
}

// YOLODefaultParams returns parameters matching the default live thresholds
func YOLODefaultParams() YOLOParams {
	return YOLOParams{
		BoxThreshold:    0.4,
		NMSThreshold:    0.5,
		MaxObjectNumber: 100,
	}
}

// NewYOLO returns an instance of the YOLO post processor
func NewYOLO(p YOLOParams) *YOLO {
	return &YOLO{
		Params: p,
		idGen:  NewIDGenerator(),
	}
}

// layout describes how anchors and attributes are laid out in the tensor
type layout struct {
	anchors    int
	classes    int
	transposed bool // [1, anchors, 4+classes]
}

// at returns attribute a of anchor i
func (l layout) at(data []float32, a, i int) float32 {
	if l.transposed {
		return data[i*(4+l.classes)+a]
	}
	return data[a*l.anchors+i]
}

func (y *YOLO) layoutFor(data []float32, dims []int) (layout, error) {

	if len(dims) != 3 || dims[0] != 1 {
		return layout{}, errors.Errorf("unexpected output shape %v", dims)
	}

	l := layout{}

	switch {
	case y.Params.ObjectClassNum > 0 && dims[1] == 4+y.Params.ObjectClassNum:
		l.classes, l.anchors = y.Params.ObjectClassNum, dims[2]
	case y.Params.ObjectClassNum > 0 && dims[2] == 4+y.Params.ObjectClassNum:
		l.classes, l.anchors, l.transposed = y.Params.ObjectClassNum, dims[1], true
	case y.Params.ObjectClassNum == 0 && dims[1] > 4 && dims[1] < dims[2]:
		l.classes, l.anchors = dims[1]-4, dims[2]
	default:
		return layout{}, errors.Errorf("output shape %v does not match %d classes",
			dims, y.Params.ObjectClassNum)
	}

	if len(data) < (4+l.classes)*l.anchors {
		return layout{}, errors.Errorf("output has %d values, shape %v needs %d",
			len(data), dims, (4+l.classes)*l.anchors)
	}

	return l, nil
}

// DetectObjects decodes the output tensor data with shape dims and maps the
// boxes back into source frame coordinates using the resizer that produced
// the model input
func (y *YOLO) DetectObjects(data []float32, dims []int,
	resizer *preprocess.Resizer) ([]DetectResult, error) {

	l, err := y.layoutFor(data, dims)

	if err != nil {
		return nil, err
	}

	var filterBoxes []float32
	var objProbs []float32
	var classID []int

	for i := 0; i < l.anchors; i++ {

		maxScore := y.Params.BoxThreshold
		maxClassID := -1

		for c := 0; c < l.classes; c++ {
			score := l.at(data, 4+c, i)

			if score > maxScore {
				maxScore = score
				maxClassID = c
			}
		}

		if maxClassID == -1 {
			continue
		}

		cx := l.at(data, 0, i)
		cy := l.at(data, 1, i)
		w := l.at(data, 2, i)
		h := l.at(data, 3, i)

		filterBoxes = append(filterBoxes, cx-w/2, cy-h/2, w, h)
		objProbs = append(objProbs, maxScore)
		classID = append(classID, maxClassID)
	}

	validCount := len(objProbs)

	if validCount == 0 {
		return nil, nil
	}

	indexArray := make([]int, validCount)

	for i := range indexArray {
		indexArray[i] = i
	}

	quickSortIndiceInverse(objProbs, 0, validCount-1, indexArray)

	classSet := make(map[int]bool)

	for _, id := range classID {
		classSet[id] = true
	}

	for c := range classSet {
		nms(validCount, filterBoxes, classID, indexArray, c, y.Params.NMSThreshold)
	}

	group := make([]DetectResult, 0)

	for i := 0; i < validCount; i++ {

		if indexArray[i] == -1 {
			continue
		}

		if y.Params.MaxObjectNumber > 0 && len(group) >= y.Params.MaxObjectNumber {
			break
		}

		n := indexArray[i]

		x1, y1 := resizer.ToSource(filterBoxes[n*4+0], filterBoxes[n*4+1])
		x2, y2 := resizer.ToSource(filterBoxes[n*4+0]+filterBoxes[n*4+2],
			filterBoxes[n*4+1]+filterBoxes[n*4+3])

		srcW := resizer.SrcWidth()
		srcH := resizer.SrcHeight()

		group = append(group, DetectResult{
			Box: BoxRect{
				Left:   int(clamp(x1, 0, srcW)),
				Top:    int(clamp(y1, 0, srcH)),
				Right:  int(clamp(x2, 0, srcW)),
				Bottom: int(clamp(y2, 0, srcH)),
			},
			Probability: objProbs[i],
			Class:       classID[n],
			ID:          y.idGen.GetNext(),
		})
	}

	return group, nil
}
