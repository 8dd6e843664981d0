//go:build !linux

package capture

import (
	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/locate"
	"gocv.io/x/gocv"
)

// X11Source is only available on linux
type X11Source struct{}

// NewX11Source always fails on this platform
func NewX11Source() (*X11Source, error) {
	return nil, errors.New("x11 capture is only supported on linux")
}

// Grab always fails on this platform
func (*X11Source) Grab(locate.Region) (gocv.Mat, error) {
	return gocv.NewMat(), ErrCaptureFailed
}

// Close is a no-op
func (*X11Source) Close() error {
	return nil
}
