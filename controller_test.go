package screendetect

import (
	"context"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/capture"
	"github.com/swdee/go-screendetect/detect"
	"github.com/swdee/go-screendetect/locate"
	"github.com/swdee/go-screendetect/render"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"
	"gocv.io/x/gocv"
)

var (
	testRegion = locate.Region{Left: 10, Top: 20, Width: 64, Height: 48}
	testTarget = locate.Target{PID: 42, Name: "game.exe", Window: locate.Window{Handle: 7, PID: 42}}
)

type fakeLocator struct {
	locate  func(n int) (locate.Target, error)
	region  func(n int) (locate.Region, error)
	alive   func(pid int32) bool
	locates int
	regions int
}

func (f *fakeLocator) Locate(string) (locate.Target, error) {
	f.locates++

	if f.locate == nil {
		return testTarget, nil
	}

	return f.locate(f.locates)
}

func (f *fakeLocator) ComputeCaptureRegion(locate.Handle) (locate.Region, error) {
	f.regions++

	if f.region == nil {
		return testRegion, nil
	}

	return f.region(f.regions)
}

func (f *fakeLocator) Alive(pid int32) bool {
	if f.alive == nil {
		return true
	}
	return f.alive(pid)
}

type fakeSource struct {
	grab   func(n int, region locate.Region) (gocv.Mat, error)
	grabs  int
	closed bool
}

func blankFrame(region locate.Region) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0),
		region.Height, region.Width, gocv.MatTypeCV8UC3)
}

func (f *fakeSource) Grab(region locate.Region) (gocv.Mat, error) {
	f.grabs++

	if f.grab == nil {
		return blankFrame(region), nil
	}

	return f.grab(f.grabs, region)
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

// fakeSurface returns scripted keys, quitting once they run out
type fakeSurface struct {
	keys   []int
	shown  int
	sizes  []image.Point
	onPoll func()
	closed bool
}

func (f *fakeSurface) Show(gocv.Mat) error {
	f.shown++
	return nil
}

func (f *fakeSurface) PollKey(time.Duration) int {
	if f.onPoll != nil {
		f.onPoll()
	}

	if len(f.keys) == 0 {
		return 'q'
	}

	key := f.keys[0]
	f.keys = f.keys[1:]

	return key
}

func (f *fakeSurface) Resize(w, h int) {
	f.sizes = append(f.sizes, image.Pt(w, h))
}

func (f *fakeSurface) Close() error {
	f.closed = true
	return nil
}

type harness struct {
	loc     *fakeLocator
	src     *fakeSource
	surface *fakeSurface
	clock   *clock.Mock
	saved   []string
	deps    Deps
}

func newHarness(t *testing.T, keys ...int) *harness {
	h := &harness{
		loc:     &fakeLocator{},
		src:     &fakeSource{},
		surface: &fakeSurface{keys: keys},
		clock:   clock.NewMock(),
	}

	h.deps = Deps{
		Locator:  h.loc,
		Source:   h.src,
		Detector: detect.Nop{},
		Surface:  h.surface,
		Overlay:  render.NewOverlay(render.PaletteFor([]string{"A", "B"})),
		Clock:    h.clock,
		Write: func(path string, img gocv.Mat) error {
			h.saved = append(h.saved, path)
			return nil
		},
		Log: zaptest.NewLogger(t).Sugar(),
	}

	return h
}

func (h *harness) run(t *testing.T, opts Options) (*Controller, Summary, error) {
	t.Helper()

	c, err := NewController(opts, h.deps)
	test.That(t, err, test.ShouldBeNil)

	sum, err := c.Run(context.Background())

	test.That(t, c.State(), test.ShouldEqual, Terminated)
	test.That(t, h.src.closed, test.ShouldBeTrue)
	test.That(t, h.surface.closed, test.ShouldBeTrue)

	return c, sum, err
}

func TestRunQuit(t *testing.T) {
	h := newHarness(t, 'q')

	c, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	test.That(t, sum.Reason, test.ShouldBeNil)
	test.That(t, sum.Frames, test.ShouldEqual, 1)
	test.That(t, h.surface.shown, test.ShouldEqual, 1)
	// window sized to half the capture region
	test.That(t, h.surface.sizes, test.ShouldResemble, []image.Point{image.Pt(32, 24)})
	test.That(t, c.Session().Target, test.ShouldResemble, testTarget)
	test.That(t, c.Session().Region, test.ShouldResemble, testRegion)
}

func TestRunTargetLost(t *testing.T) {
	h := newHarness(t)
	h.loc.alive = func(int32) bool { return false }

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, errors.Is(err, ErrTargetLost), test.ShouldBeTrue)
	test.That(t, errors.Is(sum.Reason, ErrTargetLost), test.ShouldBeTrue)
	test.That(t, h.src.grabs, test.ShouldEqual, 0)
	test.That(t, h.surface.shown, test.ShouldEqual, 0)
}

func TestRunTargetLostMidSession(t *testing.T) {
	h := newHarness(t, -1, -1, -1)

	checks := 0
	h.loc.alive = func(int32) bool {
		checks++
		return checks <= 2
	}

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, errors.Is(err, ErrTargetLost), test.ShouldBeTrue)
	test.That(t, sum.Frames, test.ShouldEqual, 2)
	test.That(t, h.src.grabs, test.ShouldEqual, 2)
}

func TestRunDiscoveryFailure(t *testing.T) {
	h := newHarness(t)
	h.loc.locate = func(int) (locate.Target, error) {
		return locate.Target{}, locate.ErrProcessNotFound
	}

	_, _, err := h.run(t, DefaultOptions())

	test.That(t, errors.Is(err, ErrDiscovery), test.ShouldBeTrue)
	test.That(t, errors.Is(err, locate.ErrProcessNotFound), test.ShouldBeTrue)
	test.That(t, h.src.grabs, test.ShouldEqual, 0)
}

func TestRunRegionFailureAtStartup(t *testing.T) {
	h := newHarness(t)
	h.loc.region = func(int) (locate.Region, error) {
		return locate.Region{}, locate.ErrInvalidHandle
	}

	_, _, err := h.run(t, DefaultOptions())

	test.That(t, errors.Is(err, ErrDiscovery), test.ShouldBeTrue)
	test.That(t, h.src.grabs, test.ShouldEqual, 0)
}

func TestRunStaleRegion(t *testing.T) {
	h := newHarness(t, 'q')
	h.src.grab = func(n int, region locate.Region) (gocv.Mat, error) {
		if n == 1 {
			return gocv.NewMat(), &capture.RegionStaleError{Want: region.Size(), Got: image.Pt(80, 60)}
		}
		return blankFrame(region), nil
	}

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	// region computed on connect and again after the stale grab
	test.That(t, h.loc.regions, test.ShouldEqual, 2)
	test.That(t, h.src.grabs, test.ShouldEqual, 2)
	// stale frame was not rendered
	test.That(t, h.surface.shown, test.ShouldEqual, 1)
	test.That(t, sum.Frames, test.ShouldEqual, 1)
	test.That(t, h.loc.locates, test.ShouldEqual, 1)
}

func TestRunStaleRegionRecomputeFails(t *testing.T) {
	h := newHarness(t, 'q')
	h.src.grab = func(n int, region locate.Region) (gocv.Mat, error) {
		if n == 1 {
			return gocv.NewMat(), &capture.RegionStaleError{Want: region.Size()}
		}
		return blankFrame(region), nil
	}
	h.loc.region = func(n int) (locate.Region, error) {
		if n == 2 {
			return locate.Region{}, locate.ErrInvalidHandle
		}
		return testRegion, nil
	}

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	// recovered through a reconnect
	test.That(t, h.loc.locates, test.ShouldEqual, 2)
	test.That(t, h.loc.regions, test.ShouldEqual, 3)
	test.That(t, sum.Frames, test.ShouldEqual, 1)
}

func TestRunCaptureFailureReconnectFails(t *testing.T) {
	h := newHarness(t)
	h.src.grab = func(int, locate.Region) (gocv.Mat, error) {
		return gocv.NewMat(), errors.Wrap(capture.ErrCaptureFailed, "boom")
	}
	h.loc.locate = func(n int) (locate.Target, error) {
		if n > 1 {
			return locate.Target{}, locate.ErrWindowNotFound
		}
		return testTarget, nil
	}

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, errors.Is(err, ErrReconnectFailed), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrCaptureFailure), test.ShouldBeTrue)
	test.That(t, errors.Is(err, capture.ErrCaptureFailed), test.ShouldBeTrue)
	test.That(t, errors.Is(err, locate.ErrWindowNotFound), test.ShouldBeTrue)
	test.That(t, sum.Frames, test.ShouldEqual, 0)
}

func TestRunCaptureFailureRecovers(t *testing.T) {
	h := newHarness(t, 'q')
	h.src.grab = func(n int, region locate.Region) (gocv.Mat, error) {
		if n == 1 {
			return gocv.NewMat(), capture.ErrCaptureFailed
		}
		return blankFrame(region), nil
	}

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.loc.locates, test.ShouldEqual, 2)
	test.That(t, sum.Frames, test.ShouldEqual, 1)
}

func TestRunReconnectKey(t *testing.T) {
	h := newHarness(t, 'r', 'q')

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.loc.locates, test.ShouldEqual, 2)
	test.That(t, h.loc.regions, test.ShouldEqual, 2)
	test.That(t, sum.Frames, test.ShouldEqual, 2)
	test.That(t, h.surface.sizes, test.ShouldHaveLength, 2)
}

func TestRunScreenshots(t *testing.T) {
	h := newHarness(t, 's', 's', 's', 'q')

	var raw []uint8
	h.deps.Write = func(path string, img gocv.Mat) error {
		h.saved = append(h.saved, path)
		// centre pixel sits under the crosshair on the annotated frame
		raw = append(raw, img.GetVecbAt(img.Rows()/2, img.Cols()/2)[1])
		return nil
	}

	opts := DefaultOptions()
	opts.ScreenshotDir = "shots"

	_, sum, err := h.run(t, opts)

	test.That(t, err, test.ShouldBeNil)
	test.That(t, sum.Screenshots, test.ShouldEqual, 3)
	test.That(t, h.saved, test.ShouldResemble, []string{
		filepath.Join("shots", "screenshot_1.jpg"),
		filepath.Join("shots", "screenshot_2.jpg"),
		filepath.Join("shots", "screenshot_3.jpg"),
	})
	test.That(t, raw, test.ShouldResemble, []uint8{0, 0, 0})
}

func TestRunToggleLabels(t *testing.T) {
	h := newHarness(t, 'c', 'q')
	c, _, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Session().ShowLabels, test.ShouldBeFalse)

	h = newHarness(t, 'c', 'c', 'q')
	c, _, err = h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Session().ShowLabels, test.ShouldBeTrue)
}

func TestRunDetectorErrorSkipsFrame(t *testing.T) {
	h := newHarness(t, -1, 'q')

	calls := 0
	h.deps.Detector = detect.Func(func(gocv.Mat, float32, float32) ([]detect.Detection, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("inference failed")
		}
		return []detect.Detection{
			{Box: image.Rect(5, 5, 20, 20), ClassName: "A", Confidence: 0.82},
		}, nil
	})

	c, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.src.grabs, test.ShouldEqual, 2)
	test.That(t, h.surface.shown, test.ShouldEqual, 1)
	test.That(t, sum.Frames, test.ShouldEqual, 1)
	test.That(t, c.Session().Stats.Detections, test.ShouldEqual, 1)
	test.That(t, c.Session().Stats.WindowSize, test.ShouldResemble, image.Pt(64, 48))
}

func TestRunDetectorAlwaysFailing(t *testing.T) {
	h := newHarness(t, 's', 'c', 'q')
	h.deps.Detector = detect.Func(func(gocv.Mat, float32, float32) ([]detect.Detection, error) {
		return nil, errors.New("output shape does not match classes")
	})

	c, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.src.grabs, test.ShouldEqual, 3)
	test.That(t, h.surface.shown, test.ShouldEqual, 0)
	test.That(t, sum.Frames, test.ShouldEqual, 0)
	test.That(t, sum.Screenshots, test.ShouldEqual, 1)
	test.That(t, c.Session().ShowLabels, test.ShouldBeFalse)
}

func TestRunStaleRegionPersists(t *testing.T) {
	h := newHarness(t)
	h.src.grab = func(_ int, region locate.Region) (gocv.Mat, error) {
		return gocv.NewMat(), &capture.RegionStaleError{Want: region.Size(), Got: image.Pt(32, 24)}
	}
	h.loc.locate = func(n int) (locate.Target, error) {
		if n > 1 {
			return locate.Target{}, locate.ErrWindowNotFound
		}
		return testTarget, nil
	}

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, errors.Is(err, ErrReconnectFailed), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrCaptureFailure), test.ShouldBeTrue)
	test.That(t, capture.IsRegionStale(err), test.ShouldBeTrue)
	// connect plus one recompute per tolerated stale grab
	test.That(t, h.loc.regions, test.ShouldEqual, maxStaleRegions+1)
	test.That(t, h.src.grabs, test.ShouldEqual, maxStaleRegions+1)
	test.That(t, h.surface.shown, test.ShouldEqual, 0)
	test.That(t, sum.Frames, test.ShouldEqual, 0)
}

func TestRunStaleCountResetsOnGoodFrame(t *testing.T) {
	keys := make([]int, maxStaleRegions)
	for i := range keys {
		keys[i] = -1
	}

	h := newHarness(t, keys...)
	// every other grab is stale, never enough in a row to reconnect
	h.src.grab = func(n int, region locate.Region) (gocv.Mat, error) {
		if n%2 == 1 {
			return gocv.NewMat(), &capture.RegionStaleError{Want: region.Size()}
		}
		return blankFrame(region), nil
	}

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.loc.locates, test.ShouldEqual, 1)
	test.That(t, sum.Frames, test.ShouldEqual, maxStaleRegions+1)
}

func TestRunScreenshotWriteFails(t *testing.T) {
	h := newHarness(t, 's', 's', 'q')

	var tried []string
	h.deps.Write = func(path string, img gocv.Mat) error {
		tried = append(tried, path)
		if len(tried) == 1 {
			return errors.New("disk full")
		}
		return nil
	}

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	test.That(t, sum.Screenshots, test.ShouldEqual, 1)
	test.That(t, tried, test.ShouldResemble, []string{
		filepath.Join(".", "screenshot_1.jpg"),
		filepath.Join(".", "screenshot_2.jpg"),
	})
}

func TestRunFPS(t *testing.T) {
	keys := make([]int, 10)
	for i := range keys {
		keys[i] = -1
	}

	h := newHarness(t, keys...)
	h.surface.onPoll = func() { h.clock.Add(100 * time.Millisecond) }

	_, sum, err := h.run(t, DefaultOptions())

	test.That(t, err, test.ShouldBeNil)
	// eleventh frame closes a one second window
	test.That(t, sum.Frames, test.ShouldEqual, 11)
	test.That(t, sum.FPS, test.ShouldEqual, 11.0)
}

func TestRunCancelled(t *testing.T) {
	h := newHarness(t, -1, -1, -1, -1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	polls := 0
	h.surface.onPoll = func() {
		polls++
		if polls == 2 {
			cancel()
		}
	}

	c, err := NewController(DefaultOptions(), h.deps)
	test.That(t, err, test.ShouldBeNil)

	sum, err := c.Run(ctx)

	test.That(t, err, test.ShouldBeNil)
	test.That(t, errors.Is(sum.Reason, context.Canceled), test.ShouldBeTrue)
	test.That(t, sum.Frames, test.ShouldEqual, 2)
	test.That(t, h.src.closed, test.ShouldBeTrue)
	test.That(t, h.surface.closed, test.ShouldBeTrue)
}

func TestNewControllerRequiresDeps(t *testing.T) {
	h := newHarness(t)

	deps := h.deps
	deps.Source = nil
	_, err := NewController(DefaultOptions(), deps)
	test.That(t, err, test.ShouldNotBeNil)

	deps = h.deps
	deps.Overlay = nil
	_, err = NewController(DefaultOptions(), deps)
	test.That(t, err, test.ShouldNotBeNil)

	deps = h.deps
	deps.Clock = nil
	deps.Log = nil
	deps.Metrics = nil
	c, err := NewController(DefaultOptions(), deps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.State(), test.ShouldEqual, Searching)
}
