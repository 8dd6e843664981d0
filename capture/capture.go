// Package capture grabs the pixels of a screen region as BGR images.
package capture

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/locate"
	"gocv.io/x/gocv"
)

// ErrCaptureFailed wraps errors returned by a capture backend
var ErrCaptureFailed = errors.New("capture failed")

// Source produces one image per call for a screen region
type Source interface {
	// Grab returns a 3 channel BGR image of the region.  The caller owns
	// the returned Mat and must Close it.  A *RegionStaleError is returned
	// when the backend produced an image of a different size than the region.
	Grab(region locate.Region) (gocv.Mat, error)
	// Close releases the capture handle
	Close() error
}

// RegionStaleError reports that the grabbed image no longer matches the
// capture region, which happens when the window is resized between the
// region being computed and the grab
type RegionStaleError struct {
	Want image.Point
	Got  image.Point
}

func (e *RegionStaleError) Error() string {
	return fmt.Sprintf("capture region stale: want %dx%d, got %dx%d",
		e.Want.X, e.Want.Y, e.Got.X, e.Got.Y)
}

// IsRegionStale reports whether err is or wraps a *RegionStaleError
func IsRegionStale(err error) bool {
	var stale *RegionStaleError
	return errors.As(err, &stale)
}

// New returns the capture Source for the named backend, either "screen" or
// "x11"
func New(backend string) (Source, error) {

	switch backend {
	case "", "screen":
		return NewScreenSource(), nil
	case "x11":
		src, err := NewX11Source()

		if err != nil {
			return nil, err
		}

		return src, nil
	}

	return nil, errors.Errorf("unknown capture backend %q", backend)
}

// checkSize closes img and returns a *RegionStaleError if it does not have
// the dimensions of region
func checkSize(region locate.Region, img gocv.Mat) (gocv.Mat, error) {

	if region.Matches(img.Cols(), img.Rows()) {
		return img, nil
	}

	err := &RegionStaleError{
		Want: region.Size(),
		Got:  image.Pt(img.Cols(), img.Rows()),
	}

	img.Close()

	return gocv.NewMat(), err
}

// checkPixels returns ErrCaptureFailed unless data holds exactly one pixel of
// bpp bytes for every point of region.  The backends return data for the
// requested geometry, so a mismatch is a pixel format the source cannot
// convert rather than a resized window.
func checkPixels(region locate.Region, data []byte, bpp int) error {

	want := region.Width * region.Height * bpp

	if len(data) != want {
		return errors.Wrapf(ErrCaptureFailed, "unsupported pixel format: got %d bytes for %s, want %d",
			len(data), region, want)
	}

	return nil
}

// bgrFromBytes converts a packed 4 channel pixel buffer into a new BGR Mat
func bgrFromBytes(width, height int, data []byte, code gocv.ColorConversionCode) (gocv.Mat, error) {

	src, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, data)

	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "error creating mat from pixels")
	}

	defer src.Close()

	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, code)

	return dst, nil
}
