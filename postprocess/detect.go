package postprocess

import (
	"image"
	"sync"
)

// BoxRect are the dimensions of the bounding box of a detect object
type BoxRect struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// Rect returns the box as an image.Rectangle
func (b BoxRect) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the index into the model's class list
	Class int
	// Box are the bounding box dimensions of the object location in source
	// frame coordinates
	Box BoxRect
	// Probability is the confidence score of the object detected
	Probability float32
	// ID is a unique ID assigned to the detection result
	ID int64
}

// IDGenerator hands out increasing detection ids
type IDGenerator struct {
	id int64
	sync.Mutex
}

// NewIDGenerator returns a generator starting at 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next id
func (id *IDGenerator) GetNext() int64 {
	id.Lock()
	defer id.Unlock()
	id.id++
	return id.id
}
