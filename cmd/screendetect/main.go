// Package main is the screendetect command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagConfig      = "config"
	flagLogLevel    = "log-level"
	flagProcess     = "process"
	flagModel       = "model"
	flagLabels      = "labels"
	flagInputSize   = "input-size"
	flagConf        = "conf"
	flagIoU         = "iou"
	flagBackend     = "backend"
	flagFP16        = "fp16"
	flagCapture     = "capture"
	flagMetricsAddr = "metrics-addr"
	flagHeadless    = "headless"
	flagSave        = "save"
	flagHistory     = "history"
	flagLimit       = "limit"
	flagFilter      = "filter"
	flagWorkers     = "workers"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "screendetect",
		Usage:   "run object detection over a live application window",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
				EnvVars: []string{"SCREENDETECT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log level: debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			liveCommand(),
			inferCommand(),
			benchmarkCommand(),
			previewCommand(),
			windowsCommand(),
			versionCommand(),
		},
	}
}

// modelFlags are shared by every command that loads the detector
func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagModel,
			Aliases: []string{"m"},
			Usage:   "ONNX model `FILE`",
		},
		&cli.StringFlag{
			Name:  flagLabels,
			Usage: "labels `FILE` with one class name per line",
		},
		&cli.IntFlag{
			Name:  flagInputSize,
			Usage: "square model input size",
		},
		&cli.Float64Flag{
			Name:  flagConf,
			Usage: "confidence threshold",
		},
		&cli.Float64Flag{
			Name:  flagIoU,
			Usage: "NMS IoU threshold",
		},
		&cli.StringFlag{
			Name:  flagBackend,
			Usage: "inference backend: cpu or cuda",
		},
		&cli.BoolFlag{
			Name:  flagFP16,
			Usage: "use half precision on cuda",
		},
	}
}
