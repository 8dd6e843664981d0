package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/detect"
	"github.com/swdee/go-screendetect/display"
	"github.com/swdee/go-screendetect/infer"
	"github.com/urfave/cli/v2"
)

func inferCommand() *cli.Command {
	return &cli.Command{
		Name:      "infer",
		Usage:     "run detection on an image, a video or the webcam",
		ArgsUsage: "PATH (an image, video, directory of images or 0 for the webcam)",
		Flags: append(modelFlags(),
			&cli.BoolFlag{
				Name:  flagSave,
				Usage: "save the annotated output next to the input instead of showing it",
			},
			&cli.IntFlag{
				Name:  flagWorkers,
				Value: 2,
				Usage: "detectors run in parallel over a directory",
			},
		),
		Action: inferAction,
	}
}

func inferAction(c *cli.Context) error {

	if c.NArg() != 1 {
		return errors.New("infer takes exactly one PATH argument")
	}

	path := c.Args().First()

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return inferDirAction(c, path)
	}

	if err := infer.Check(path); err != nil {
		return err
	}

	if path != infer.Webcam {
		if _, err := os.Stat(path); err != nil {
			return errors.Wrap(err, "file not found")
		}
	}

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	log, err := newLogger(cfg, "infer")

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

	det, err := openDetector(cfg, classes, cfg.Model.InputSize)

	if err != nil {
		return err
	}

	defer det.Close()

	opts := infer.Options{
		Conf:    cfg.Detection.Confidence,
		IoU:     cfg.Detection.IoU,
		Palette: palette(cfg, classes),
		Log:     log,
	}

	save := c.Bool(flagSave) && path != infer.Webcam

	var surface display.Surface = display.Headless{}

	if !save {
		win := display.NewWindow("screendetect inference")
		defer win.Close()
		surface = win
	}

	if infer.IsImage(path) {
		out := ""

		if save {
			out = infer.ImageOutputPath(path)
		}

		log.Infof("Processing %s", path)

		dets, err := infer.Image(ctx, det, path, out, opts, surface)

		if err != nil {
			return err
		}

		fmt.Printf("Detected %d objects\n", len(dets))

		for _, line := range infer.FormatDetections(dets) {
			fmt.Println("  " + line)
		}

		return nil
	}

	out := ""

	if save {
		out = infer.VideoOutputPath(path)

		opts.Progress = func(frame, total int) {
			if total > 0 {
				fmt.Printf("\rProcessing: %d/%d frames (%.1f%%)", frame, total,
					float64(frame)/float64(total)*100)
			}
		}
	} else {
		log.Info("Press q to stop")
	}

	stats, err := infer.Video(ctx, det, path, out, opts, surface)

	if save {
		fmt.Println()
	}

	if err != nil {
		return err
	}

	log.Infof("Processed %d frames with %d detections", stats.Frames, stats.Detections)

	return nil
}

// inferDirAction annotates every image in dir, always saving the results
func inferDirAction(c *cli.Context, dir string) error {

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	log, err := newLogger(cfg, "infer")

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

	pool, err := detect.NewPool(c.Int(flagWorkers), func() (detect.Detector, error) {
		return openDetector(cfg, classes, cfg.Model.InputSize)
	})

	if err != nil {
		return err
	}

	defer pool.Close()

	results, err := infer.Dir(ctx, pool, dir, infer.Options{
		Conf:    cfg.Detection.Confidence,
		IoU:     cfg.Detection.IoU,
		Palette: palette(cfg, classes),
		Log:     log,
	})

	if err != nil {
		return err
	}

	failed := 0

	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Warnf("%s: %v", r.Path, r.Err)
			continue
		}

		fmt.Printf("%s: %d objects -> %s\n", r.Path, len(r.Detections), r.Output)
	}

	if failed > 0 {
		return errors.Errorf("%d of %d images failed", failed, len(results))
	}

	return nil
}
