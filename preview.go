package screendetect

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/capture"
	"github.com/swdee/go-screendetect/display"
	"github.com/swdee/go-screendetect/locate"
	"github.com/swdee/go-screendetect/render"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// PreviewInterval paces the preview loop at 60 frames per second
const PreviewInterval = time.Second / 60

// PreviewOptions configure a capture only preview
type PreviewOptions struct {
	Process      string
	DisplayScale float64
	// Interval is the minimum time between frames, zero disables pacing
	Interval time.Duration
}

// Preview shows the target window's capture region with only a frame rate
// and resolution overlay until q is pressed, ctx is cancelled or capturing
// fails.  The detector and overlay in deps are not used.
func Preview(ctx context.Context, opts PreviewOptions, deps Deps) (sum Summary, err error) {

	if deps.Locator == nil || deps.Source == nil || deps.Surface == nil {
		return sum, errors.New("locator, capture source and display surface are required")
	}

	clk := deps.Clock

	if clk == nil {
		clk = clock.New()
	}

	log := deps.Log

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	defer func() {
		err = multierr.Combine(err, deps.Source.Close(), deps.Surface.Close())
		log.Infof("Preview ended: frames=%d fps=%.1f", sum.Frames, sum.FPS)
	}()

	target, err := deps.Locator.Locate(opts.Process)

	if err != nil {
		return sum, multierr.Append(ErrDiscovery, err)
	}

	region, err := deps.Locator.ComputeCaptureRegion(target.Window.Handle)

	if err != nil {
		return sum, multierr.Append(ErrDiscovery, err)
	}

	log.Infof("Previewing %s region %s", target, region)

	scale := opts.DisplayScale

	if scale <= 0 {
		scale = 1
	}

	resize := func(r locate.Region) {
		size := display.ScaledSize(r.Size(), scale)
		deps.Surface.Resize(size.X, size.Y)
	}

	resize(region)

	fps := NewFPSMeter(clk)
	font := render.PanelFont().WithColor(render.Green)

	scaled := gocv.NewMat()
	defer scaled.Close()

	stale := 0

	for ctx.Err() == nil {

		start := clk.Now()

		frame, gerr := deps.Source.Grab(region)

		if gerr != nil {
			frame.Close()

			if !capture.IsRegionStale(gerr) || stale >= maxStaleRegions {
				return sum, multierr.Append(ErrCaptureFailure, gerr)
			}

			stale++

			if region, err = deps.Locator.ComputeCaptureRegion(target.Window.Handle); err != nil {
				return sum, multierr.Append(ErrCaptureFailure, err)
			}

			resize(region)
			continue
		}

		stale = 0

		canvas := render.NewMatCanvas(&frame)
		canvas.Text(fmt.Sprintf("FPS: %.1f", fps.FPS()), image.Pt(10, 30), font)
		canvas.Text(fmt.Sprintf("Resolution: %dx%d", region.Width, region.Height), image.Pt(10, 70), font)

		display.Scale(frame, &scaled, scale)
		serr := deps.Surface.Show(scaled)
		frame.Close()

		if serr != nil {
			return sum, serr
		}

		sum.Frames++

		if v, ok := fps.Tick(); ok {
			sum.FPS = v
			log.Infof("FPS: %.1f | Resolution: %dx%d", v, region.Width, region.Height)
		}

		if display.ParseKey(deps.Surface.PollKey(time.Millisecond)) == display.Quit {
			return sum, nil
		}

		if wait := opts.Interval - clk.Since(start); opts.Interval > 0 && wait > 0 {
			clk.Sleep(wait)
		}
	}

	sum.Reason = ctx.Err()

	return sum, nil
}
