package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/swdee/go-screendetect"
	"github.com/swdee/go-screendetect/config"
	"github.com/swdee/go-screendetect/detect"
	"github.com/swdee/go-screendetect/logging"
	"github.com/swdee/go-screendetect/render"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// loadConfig reads the config file and environment then applies any flags
// that were set on the command line
func loadConfig(c *cli.Context) (*config.Config, error) {

	cfg, err := config.Load(c.String(flagConfig))

	if err != nil {
		return nil, err
	}

	if c.IsSet(flagLogLevel) {
		cfg.Log.Level = c.String(flagLogLevel)
	}

	if c.IsSet(flagProcess) {
		cfg.Target.Process = c.String(flagProcess)
	}

	if c.IsSet(flagModel) {
		cfg.Model.Path = c.String(flagModel)
	}

	if c.IsSet(flagLabels) {
		cfg.Model.Labels = c.String(flagLabels)
	}

	if c.IsSet(flagInputSize) {
		cfg.Model.InputSize = c.Int(flagInputSize)
	}

	if c.IsSet(flagConf) {
		cfg.Detection.Confidence = float32(c.Float64(flagConf))
	}

	if c.IsSet(flagIoU) {
		cfg.Detection.IoU = float32(c.Float64(flagIoU))
	}

	if c.IsSet(flagBackend) {
		cfg.Model.Backend = strings.ToLower(c.String(flagBackend))
	}

	if c.IsSet(flagFP16) {
		cfg.Model.FP16 = c.Bool(flagFP16)
	}

	if c.IsSet(flagCapture) {
		cfg.Capture.Backend = c.String(flagCapture)
	}

	if c.IsSet(flagMetricsAddr) {
		cfg.Metrics.Addr = c.String(flagMetricsAddr)
	}

	if c.IsSet(flagHistory) {
		cfg.Benchmark.History = c.String(flagHistory)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

func newLogger(cfg *config.Config, name string) (*zap.SugaredLogger, error) {
	return logging.NewLogger(name, cfg.Log.Level)
}

// signalContext is cancelled on interrupt or terminate
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// classNames returns the labels file contents if one is configured,
// otherwise the configured class names
func classNames(cfg *config.Config) ([]string, error) {

	if cfg.Model.Labels == "" {
		return cfg.ClassNames(), nil
	}

	return screendetect.LoadLabels(cfg.Model.Labels)
}

// palette styles the configured classes, any other label gets a fallback
// color
func palette(cfg *config.Config, classes []string) *render.Palette {

	styles := lo.Map(cfg.Classes, func(cls config.ClassConfig, _ int) render.ClassStyle {
		return render.ClassStyle{Name: cls.Name, Color: cls.RGBA(), Marker: cls.Marker}
	})

	configured := lo.KeyBy(styles, func(s render.ClassStyle) string { return s.Name })
	fallback := render.PaletteFor(classes)

	for _, name := range classes {
		if _, ok := configured[name]; !ok {
			styles = append(styles, fallback.Style(name))
		}
	}

	return render.NewPalette(styles)
}

func openDetector(cfg *config.Config, classes []string, size int) (*detect.ONNX, error) {
	return detect.NewONNX(detect.Options{
		ModelPath: cfg.Model.Path,
		Classes:   classes,
		InputSize: size,
		Backend:   cfg.Model.Backend,
		FP16:      cfg.Model.FP16,
	})
}
