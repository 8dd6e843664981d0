package screendetect

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/capture"
	"github.com/swdee/go-screendetect/detect"
	"github.com/swdee/go-screendetect/display"
	"github.com/swdee/go-screendetect/locate"
	"github.com/swdee/go-screendetect/metrics"
	"github.com/swdee/go-screendetect/render"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// maxStaleRegions is how many grabs in a row may come back stale before the
// loop gives up recomputing the region and reconnects
const maxStaleRegions = 3

// Locator finds the target window and checks it is still alive
type Locator interface {
	Locate(name string) (locate.Target, error)
	ComputeCaptureRegion(h locate.Handle) (locate.Region, error)
	Alive(pid int32) bool
}

// Writer saves an image to path
type Writer func(path string, img gocv.Mat) error

// WriteImage saves img with gocv.IMWrite
func WriteImage(path string, img gocv.Mat) error {
	if !gocv.IMWrite(path, img) {
		return errors.Errorf("error writing image %s", path)
	}
	return nil
}

// Options configure the capture loop
type Options struct {
	// Process is the executable name of the target
	Process string
	// Conf and IoU are the detector thresholds
	Conf float32
	IoU  float32
	// DisplayScale sizes the window relative to the capture region
	DisplayScale float64
	// Screenshots are written to Dir/<Prefix><n><Ext>
	ScreenshotDir    string
	ScreenshotPrefix string
	ScreenshotExt    string
	// ShowLabels is the initial label toggle
	ShowLabels bool
	// PollWait is how long each iteration waits for a keypress
	PollWait time.Duration
	// Device is shown in the stats panel
	Device string
}

// DefaultOptions returns Options with the default thresholds and naming
func DefaultOptions() Options {
	return Options{
		Conf:             0.4,
		IoU:              0.5,
		DisplayScale:     0.5,
		ScreenshotDir:    ".",
		ScreenshotPrefix: "screenshot_",
		ScreenshotExt:    ".jpg",
		ShowLabels:       true,
		PollWait:         time.Millisecond,
		Device:           "cpu",
	}
}

// Deps are the collaborators the Controller drives.  Locator, Source,
// Detector, Surface and Overlay are required.
type Deps struct {
	Locator  Locator
	Source   capture.Source
	Detector detect.Detector
	Surface  display.Surface
	Overlay  *render.Overlay
	Clock    clock.Clock
	Write    Writer
	Metrics  metrics.Recorder
	Log      *zap.SugaredLogger
}

// Summary describes a finished session
type Summary struct {
	Frames      int
	FPS         float64
	Screenshots int
	// Reason is why the loop stopped, nil after a quit key
	Reason error
}

// Controller runs the capture, detect and render loop against a single
// target window
type Controller struct {
	opts    Options
	deps    Deps
	log     *zap.SugaredLogger
	state   State
	session SessionState
	fps     *FPSMeter
	scaled  gocv.Mat
	// last non stale capture error, reported if reconnecting fails
	captureErr error
	// consecutive stale grabs and failed detections
	staleGrabs  int
	detectFails int
}

// NewController checks deps and fills in defaults for the optional ones
func NewController(opts Options, deps Deps) (*Controller, error) {

	switch {
	case deps.Locator == nil:
		return nil, errors.New("locator is required")
	case deps.Source == nil:
		return nil, errors.New("capture source is required")
	case deps.Detector == nil:
		return nil, errors.New("detector is required")
	case deps.Surface == nil:
		return nil, errors.New("display surface is required")
	case deps.Overlay == nil:
		return nil, errors.New("overlay is required")
	}

	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	if deps.Write == nil {
		deps.Write = WriteImage
	}

	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}

	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}

	if opts.DisplayScale <= 0 {
		opts.DisplayScale = 1
	}

	return &Controller{
		opts:  opts,
		deps:  deps,
		log:   deps.Log,
		state: Searching,
		session: SessionState{
			ShowLabels: opts.ShowLabels,
		},
	}, nil
}

// State returns the current loop state
func (c *Controller) State() State {
	return c.state
}

// Session returns a copy of the session state
func (c *Controller) Session() SessionState {
	return c.session
}

// Run drives the loop until the user quits, the target is lost, discovery
// fails or ctx is cancelled.  The capture source and display surface are
// released on return.  A quit key or cancelled ctx returns a nil error, any
// other stop returns the same error held in Summary.Reason.
func (c *Controller) Run(ctx context.Context) (sum Summary, err error) {

	c.fps = NewFPSMeter(c.deps.Clock)
	c.scaled = gocv.NewMat()

	defer func() {
		if rerr := c.release(); rerr != nil {
			c.log.Warnf("Error releasing resources: %v", rerr)
			err = multierr.Append(err, rerr)
		}

		c.log.Infof("Session ended: frames=%d fps=%.1f screenshots=%d",
			sum.Frames, sum.FPS, sum.Screenshots)
	}()

	var reason error

	for c.state != Terminated {

		var ev Event

		if ctx.Err() != nil {
			ev = EventCancelled
		} else {
			ev, reason = c.handle()
		}

		next, terr := Next(c.state, ev)

		if terr != nil {
			// a handler emitted an event its state does not accept
			reason = terr
			next = Terminated
		}

		if next != c.state {
			c.log.Debugf("State %s -> %s on %s", c.state, next, ev)
		}

		c.state = next
	}

	sum = Summary{
		Frames:      c.session.Frames,
		FPS:         c.fps.FPS(),
		Screenshots: c.session.Screenshots,
		Reason:      reason,
	}

	if sum.Reason == nil && ctx.Err() != nil {
		sum.Reason = ctx.Err()
		return sum, nil
	}

	return sum, reason
}

// handle runs the work for the current state and returns the resulting
// event.  The error is the termination reason when the event leads to
// Terminated.
func (c *Controller) handle() (Event, error) {

	switch c.state {
	case Searching:
		return c.search()
	case Connected:
		return c.connect()
	case Running:
		return c.step()
	case Reconnecting:
		return c.reconnect()
	}

	return EventCancelled, errors.Errorf("unhandled state %s", c.state)
}

func (c *Controller) search() (Event, error) {

	target, err := c.deps.Locator.Locate(c.opts.Process)

	if err != nil {
		c.log.Errorf("Target %q not found: %v", c.opts.Process, err)
		return EventLocateFailed, errors.Wrap(multierr.Append(ErrDiscovery, err), c.opts.Process)
	}

	c.log.Infof("Found target %s", target)
	c.session.Target = target

	return EventLocated, nil
}

func (c *Controller) connect() (Event, error) {

	region, err := c.deps.Locator.ComputeCaptureRegion(c.session.Target.Window.Handle)

	if err != nil {
		c.log.Errorf("Error computing capture region: %v", err)
		return EventRegionFailed, multierr.Append(ErrDiscovery, err)
	}

	c.setRegion(region)

	return EventRegionReady, nil
}

func (c *Controller) setRegion(region locate.Region) {

	c.session.Region = region
	c.log.Infof("Capture region %s", region)

	size := display.ScaledSize(region.Size(), c.opts.DisplayScale)
	c.deps.Surface.Resize(size.X, size.Y)
}

// step runs one iteration of the Running state
func (c *Controller) step() (Event, error) {

	target := c.session.Target

	if !c.deps.Locator.Alive(target.PID) {
		c.log.Warnf("Target process %d has exited", target.PID)
		return EventTargetLost, errors.Wrapf(ErrTargetLost, "pid %d", target.PID)
	}

	frame, err := c.deps.Source.Grab(c.session.Region)
	defer frame.Close()

	if err != nil {
		return c.captureFailed(err), nil
	}

	c.staleGrabs = 0

	dets, err := c.deps.Detector.Detect(frame, c.opts.Conf, c.opts.IoU)

	if err != nil {
		c.detectFails++

		if c.detectFails == 1 {
			c.log.Warnf("Detection failed, skipping frames until it recovers: %v", err)
		} else {
			c.log.Debugf("Detection failed %d frames in a row: %v", c.detectFails, err)
		}

		// keys still apply while frames are skipped
		return c.command(display.ParseKey(c.deps.Surface.PollKey(c.opts.PollWait)), frame), nil
	}

	if c.detectFails > 0 {
		c.log.Infof("Detection recovered after %d failed frames", c.detectFails)
		c.detectFails = 0
	}

	c.session.Stats = FrameStats{
		FPS:        c.fps.FPS(),
		Detections: len(dets),
		WindowSize: c.session.Region.Size(),
	}

	if err := c.render(frame, dets); err != nil {
		c.log.Warnf("Error showing frame: %v", err)
	}

	c.session.Frames++
	c.deps.Metrics.Frame(len(dets))

	if fps, ok := c.fps.Tick(); ok {
		c.deps.Metrics.FPS(fps)
	}

	return c.command(display.ParseKey(c.deps.Surface.PollKey(c.opts.PollWait)), frame), nil
}

// captureFailed handles a Grab error.  A stale region is recomputed in place
// and the frame skipped, anything else reconnects.  A region still stale
// after maxStaleRegions recomputes is treated as a capture failure.
func (c *Controller) captureFailed(err error) Event {

	if capture.IsRegionStale(err) && c.staleGrabs < maxStaleRegions {
		c.staleGrabs++
		c.log.Debugf("Recomputing capture region: %v", err)

		region, rerr := c.deps.Locator.ComputeCaptureRegion(c.session.Target.Window.Handle)

		if rerr != nil {
			c.log.Warnf("Error recomputing capture region: %v", rerr)
			c.captureErr = multierr.Append(ErrCaptureFailure, rerr)
			return EventRegionFailed
		}

		c.setRegion(region)
		return EventRegionRecomputed
	}

	c.staleGrabs = 0
	c.log.Warnf("Capture failed: %v", err)
	c.deps.Metrics.CaptureError()
	c.captureErr = multierr.Append(ErrCaptureFailure, err)

	return EventCaptureFailed
}

// render draws the overlay on a copy of frame and shows it scaled
func (c *Controller) render(frame gocv.Mat, dets []detect.Detection) error {

	annotated := frame.Clone()
	defer annotated.Close()

	stats := render.Stats{
		FPS:        c.session.Stats.FPS,
		Detections: c.session.Stats.Detections,
		Resolution: c.session.Stats.WindowSize,
		Device:     c.opts.Device,
		PID:        c.session.Target.PID,
	}

	c.deps.Overlay.Draw(render.NewMatCanvas(&annotated), dets, stats, c.session.ShowLabels)

	display.Scale(annotated, &c.scaled, c.opts.DisplayScale)

	return c.deps.Surface.Show(c.scaled)
}

// command applies a key command, frame is the raw unannotated capture
func (c *Controller) command(cmd display.Command, frame gocv.Mat) Event {

	switch cmd {
	case display.Quit:
		c.log.Info("Quit requested")
		return EventQuit

	case display.Save:
		path := c.session.NextScreenshot(c.opts.ScreenshotDir, c.opts.ScreenshotPrefix,
			c.opts.ScreenshotExt)

		if err := c.deps.Write(path, frame); err != nil {
			c.log.Warnf("Error saving screenshot: %v", err)
		} else {
			c.session.Screenshots++
			c.log.Infof("Saved screenshot %s", path)
			c.deps.Metrics.Screenshot()
		}

	case display.ToggleLabels:
		c.log.Infof("Labels %s", onOff(c.session.ToggleLabels()))

	case display.Reconnect:
		c.log.Info("Reconnect requested")
		c.captureErr = nil
		return EventReconnectRequested
	}

	return EventFrame
}

func (c *Controller) reconnect() (Event, error) {

	c.deps.Metrics.Reconnect()

	target, err := c.deps.Locator.Locate(c.opts.Process)

	if err == nil {
		var region locate.Region
		region, err = c.deps.Locator.ComputeCaptureRegion(target.Window.Handle)

		if err == nil {
			c.log.Infof("Reconnected to %s", target)
			c.session.Target = target
			c.setRegion(region)
			c.captureErr = nil
			c.staleGrabs = 0
			c.fps.Reset()
			return EventReconnected, nil
		}
	}

	c.log.Errorf("Reconnect to %q failed: %v", c.opts.Process, err)

	return EventReconnectFailed, multierr.Combine(
		errors.Wrap(multierr.Append(ErrReconnectFailed, err), c.opts.Process),
		c.captureErr,
	)
}

// release closes the capture source and display surface
func (c *Controller) release() error {
	c.scaled.Close()

	return multierr.Combine(
		errors.Wrap(c.deps.Source.Close(), "error closing capture source"),
		errors.Wrap(c.deps.Surface.Close(), "error closing display"),
	)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
