//go:build linux

package capture

import (
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/locate"
	"gocv.io/x/gocv"
)

// X11Source captures from the root window of an X display over a single
// connection held for the lifetime of the source
type X11Source struct {
	mu   sync.Mutex
	conn *xgb.Conn
	root xproto.Window
}

// NewX11Source connects to the X server named by $DISPLAY
func NewX11Source() (*X11Source, error) {

	conn, err := xgb.NewConn()

	if err != nil {
		return nil, errors.Wrap(err, "error connecting to X server")
	}

	return &X11Source{
		conn: conn,
		root: xproto.Setup(conn).DefaultScreen(conn).Root,
	}, nil
}

// Grab reads the region from the root window as a ZPixmap and converts the
// BGRA pixels to BGR
func (s *X11Source) Grab(region locate.Region) (gocv.Mat, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return gocv.NewMat(), errors.Wrap(ErrCaptureFailed, "source closed")
	}

	if region.Empty() {
		return gocv.NewMat(), errors.Wrapf(ErrCaptureFailed, "empty region %s", region)
	}

	reply, err := xproto.GetImage(s.conn, xproto.ImageFormatZPixmap,
		xproto.Drawable(s.root), int16(region.Left), int16(region.Top),
		uint16(region.Width), uint16(region.Height), 0xffffffff).Reply()

	if err != nil {
		return gocv.NewMat(), errors.Wrapf(ErrCaptureFailed, "%s: %v", region, err)
	}

	// only 32 bits per pixel visuals are supported
	if err := checkPixels(region, reply.Data, 4); err != nil {
		return gocv.NewMat(), err
	}

	img, err := bgrFromBytes(region.Width, region.Height, reply.Data, gocv.ColorBGRAToBGR)

	if err != nil {
		return gocv.NewMat(), errors.Wrap(ErrCaptureFailed, err.Error())
	}

	return checkSize(region, img)
}

// Close releases the X connection.  It is safe to call more than once.
func (s *X11Source) Close() error {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}

	return nil
}
