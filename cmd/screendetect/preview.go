package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect"
	"github.com/swdee/go-screendetect/capture"
	"github.com/swdee/go-screendetect/display"
	"github.com/swdee/go-screendetect/locate"
	"github.com/urfave/cli/v2"
)

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "show the target window capture without running detection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagProcess,
				Aliases: []string{"p"},
				Usage:   "target process `NAME`",
			},
			&cli.StringFlag{
				Name:  flagCapture,
				Usage: "capture backend: screen or x11",
			},
		},
		Action: previewAction,
	}
}

func previewAction(c *cli.Context) error {

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	if cfg.Target.Process == "" {
		return errors.New("target process name cannot be empty")
	}

	log, err := newLogger(cfg, "preview")

	if err != nil {
		return err
	}

	defer log.Sync()

	ctx, stop := signalContext(c)
	defer stop()

	loc, err := locate.NewSystemLocator()

	if err != nil {
		return err
	}

	defer loc.Close()

	src, err := capture.New(cfg.Capture.Backend)

	if err != nil {
		return err
	}

	log.Info("Press q to quit")

	sum, err := screendetect.Preview(ctx, screendetect.PreviewOptions{
		Process:      cfg.Target.Process,
		DisplayScale: cfg.Display.Scale,
		Interval:     screendetect.PreviewInterval,
	}, screendetect.Deps{
		Locator: loc,
		Source:  src,
		Surface: display.NewWindow(cfg.Display.WindowName + " preview"),
		Log:     log,
	})

	if errors.Is(err, screendetect.ErrDiscovery) {
		suggestWindows(loc, cfg.Target.Process)
	}

	if err != nil {
		return err
	}

	fmt.Printf("Final FPS: %.1f\n", sum.FPS)

	return nil
}
