package capture

import (
	"sync"

	"github.com/kbinani/screenshot"
	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/locate"
	"gocv.io/x/gocv"
)

// ScreenSource captures using the platform screenshot API
type ScreenSource struct {
	mu     sync.Mutex
	closed bool
}

// NewScreenSource returns a Source using the platform screenshot API
func NewScreenSource() *ScreenSource {
	return &ScreenSource{}
}

// Grab captures the region
func (s *ScreenSource) Grab(region locate.Region) (gocv.Mat, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gocv.NewMat(), errors.Wrap(ErrCaptureFailed, "source closed")
	}

	if region.Empty() {
		return gocv.NewMat(), errors.Wrapf(ErrCaptureFailed, "empty region %s", region)
	}

	rgba, err := screenshot.CaptureRect(region.Rect())

	if err != nil {
		return gocv.NewMat(), errors.Wrapf(ErrCaptureFailed, "%s: %v", region, err)
	}

	bounds := rgba.Bounds()
	img, err := bgrFromBytes(bounds.Dx(), bounds.Dy(), rgba.Pix, gocv.ColorRGBAToBGR)

	if err != nil {
		return gocv.NewMat(), errors.Wrap(ErrCaptureFailed, err.Error())
	}

	return checkSize(region, img)
}

// Close marks the source closed, subsequent grabs fail
func (s *ScreenSource) Close() error {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}
