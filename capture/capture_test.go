package capture

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/locate"
	"go.viam.com/test"
	"gocv.io/x/gocv"
)

func TestCheckSize(t *testing.T) {
	region := locate.Region{Left: 10, Top: 20, Width: 64, Height: 48}

	img := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	out, err := checkSize(region, img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Cols(), test.ShouldEqual, 64)
	out.Close()

	// window grew between computing the region and grabbing
	img = gocv.NewMatWithSize(60, 80, gocv.MatTypeCV8UC3)
	out, err = checkSize(region, img)
	defer out.Close()

	test.That(t, IsRegionStale(err), test.ShouldBeTrue)

	var stale *RegionStaleError
	test.That(t, errors.As(err, &stale), test.ShouldBeTrue)
	test.That(t, stale.Want, test.ShouldResemble, image.Pt(64, 48))
	test.That(t, stale.Got, test.ShouldResemble, image.Pt(80, 60))
	test.That(t, stale.Error(), test.ShouldEqual, "capture region stale: want 64x48, got 80x60")
}

func TestIsRegionStaleWrapped(t *testing.T) {
	err := errors.Wrap(&RegionStaleError{}, "grab")
	test.That(t, IsRegionStale(err), test.ShouldBeTrue)
	test.That(t, IsRegionStale(ErrCaptureFailed), test.ShouldBeFalse)
	test.That(t, IsRegionStale(nil), test.ShouldBeFalse)
}

func TestBGRFromBytes(t *testing.T) {
	// 2x1 RGBA image, red then blue
	data := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}

	img, err := bgrFromBytes(2, 1, data, gocv.ColorRGBAToBGR)
	test.That(t, err, test.ShouldBeNil)
	defer img.Close()

	test.That(t, img.Channels(), test.ShouldEqual, 3)
	test.That(t, img.Cols(), test.ShouldEqual, 2)

	// BGR order
	test.That(t, img.GetVecbAt(0, 0)[2], test.ShouldEqual, uint8(255))
	test.That(t, img.GetVecbAt(0, 1)[0], test.ShouldEqual, uint8(255))
}

func TestScreenSourceClosed(t *testing.T) {
	src := NewScreenSource()
	test.That(t, src.Close(), test.ShouldBeNil)

	img, err := src.Grab(locate.Region{Width: 10, Height: 10})
	defer img.Close()

	test.That(t, errors.Is(err, ErrCaptureFailed), test.ShouldBeTrue)
}

func TestScreenSourceEmptyRegion(t *testing.T) {
	src := NewScreenSource()
	defer src.Close()

	img, err := src.Grab(locate.Region{})
	defer img.Close()

	test.That(t, errors.Is(err, ErrCaptureFailed), test.ShouldBeTrue)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("gdi")
	test.That(t, err, test.ShouldNotBeNil)

	_, traced := err.(interface{ StackTrace() errors.StackTrace })
	test.That(t, traced, test.ShouldBeTrue)

	src, err := New("screen")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.Close(), test.ShouldBeNil)
}

func TestCheckPixels(t *testing.T) {
	region := locate.Region{Width: 4, Height: 2}

	test.That(t, checkPixels(region, make([]byte, 4*2*4), 4), test.ShouldBeNil)

	// 16 bit visual returns half the bytes for the same geometry
	err := checkPixels(region, make([]byte, 4*2*2), 4)
	test.That(t, errors.Is(err, ErrCaptureFailed), test.ShouldBeTrue)
	test.That(t, IsRegionStale(err), test.ShouldBeFalse)
	test.That(t, err.Error(), test.ShouldContainSubstring, "16 bytes")
}
