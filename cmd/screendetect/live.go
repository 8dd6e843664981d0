package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect"
	"github.com/swdee/go-screendetect/capture"
	"github.com/swdee/go-screendetect/config"
	"github.com/swdee/go-screendetect/display"
	"github.com/swdee/go-screendetect/locate"
	"github.com/swdee/go-screendetect/metrics"
	"github.com/swdee/go-screendetect/render"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func liveCommand() *cli.Command {
	return &cli.Command{
		Name:  "live",
		Usage: "detect objects in a running application's window",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:    flagProcess,
				Aliases: []string{"p"},
				Usage:   "target process `NAME`",
			},
			&cli.StringFlag{
				Name:  flagCapture,
				Usage: "capture backend: screen or x11",
			},
			&cli.StringFlag{
				Name:  flagMetricsAddr,
				Usage: "serve Prometheus metrics on `ADDR`",
			},
			&cli.BoolFlag{
				Name:  flagHeadless,
				Usage: "run without a preview window",
			},
		),
		Action: liveAction,
	}
}

func liveAction(c *cli.Context) error {

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	if err := cfg.ValidateLive(); err != nil {
		return err
	}

	log, err := newLogger(cfg, "live")

	if err != nil {
		return err
	}

	defer log.Sync()

	ctx, stop := signalContext(c)
	defer stop()

	classes, err := classNames(cfg)

	if err != nil {
		return err
	}

	log.Infof("Loading model %s", cfg.Model.Path)

	det, err := openDetector(cfg, classes, cfg.Model.InputSize)

	if err != nil {
		return err
	}

	defer det.Close()

	loc, err := locate.NewSystemLocator()

	if err != nil {
		return err
	}

	defer loc.Close()

	src, err := capture.New(cfg.Capture.Backend)

	if err != nil {
		return err
	}

	var surface display.Surface = display.Headless{}

	if !c.Bool(flagHeadless) {
		surface = display.NewWindow(cfg.Display.WindowName)
	}

	rec, shutdown, err := startMetrics(cfg, log)

	if err != nil {
		src.Close()
		surface.Close()
		return err
	}

	defer shutdown()

	ctrl, err := screendetect.NewController(liveOptions(cfg, det.Device()), screendetect.Deps{
		Locator:  loc,
		Source:   src,
		Detector: det,
		Surface:  surface,
		Overlay:  render.NewOverlay(palette(cfg, classes)),
		Metrics:  rec,
		Log:      log,
	})

	if err != nil {
		src.Close()
		surface.Close()
		return err
	}

	log.Info(display.KeyHelp)

	sum, err := ctrl.Run(ctx)

	fmt.Printf("Frames: %d\nFinal FPS: %.1f\nScreenshots: %d\n", sum.Frames, sum.FPS, sum.Screenshots)

	if errors.Is(err, screendetect.ErrDiscovery) {
		suggestWindows(loc, cfg.Target.Process)
	}

	return err
}

func liveOptions(cfg *config.Config, device string) screendetect.Options {
	opts := screendetect.DefaultOptions()

	opts.Process = cfg.Target.Process
	opts.Conf = cfg.Detection.Confidence
	opts.IoU = cfg.Detection.IoU
	opts.DisplayScale = cfg.Display.Scale
	opts.ScreenshotDir = cfg.Screenshots.Dir
	opts.ScreenshotPrefix = cfg.Screenshots.Prefix
	opts.ScreenshotExt = cfg.Screenshots.Ext
	opts.ShowLabels = cfg.Display.ShowLabels
	opts.Device = device

	return opts
}

// startMetrics serves the Prometheus endpoint if an address is configured
func startMetrics(cfg *config.Config, log *zap.SugaredLogger) (metrics.Recorder, func(), error) {

	if cfg.Metrics.Addr == "" {
		return metrics.Nop{}, func() {}, nil
	}

	m := metrics.New()

	if err := m.Serve(cfg.Metrics.Addr); err != nil {
		return nil, nil, err
	}

	log.Infof("Serving metrics on http://%s/metrics", m.Addr())

	return m, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := m.Shutdown(ctx); err != nil {
			log.Warnf("Error stopping metrics server: %v", err)
		}
	}, nil
}
