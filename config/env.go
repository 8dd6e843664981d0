package config

import (
	"os"
	"strconv"
	"strings"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override file and default values
func LoadFromEnv(cfg *Config) {
	// Target and model
	if name := os.Getenv("SCREENDETECT_PROCESS"); name != "" {
		cfg.Target.Process = name
	}

	if path := os.Getenv("SCREENDETECT_MODEL"); path != "" {
		cfg.Model.Path = path
	}

	if path := os.Getenv("SCREENDETECT_LABELS"); path != "" {
		cfg.Model.Labels = path
	}

	if backend := os.Getenv("SCREENDETECT_BACKEND"); backend != "" {
		cfg.Model.Backend = strings.ToLower(backend)
	}

	if size := os.Getenv("SCREENDETECT_INPUT_SIZE"); size != "" {
		if v, err := strconv.Atoi(size); err == nil && v > 0 {
			cfg.Model.InputSize = v
		}
	}

	// Detection thresholds
	if conf := os.Getenv("SCREENDETECT_CONF"); conf != "" {
		if v, err := strconv.ParseFloat(conf, 32); err == nil {
			cfg.Detection.Confidence = float32(v)
		}
	}

	if iou := os.Getenv("SCREENDETECT_IOU"); iou != "" {
		if v, err := strconv.ParseFloat(iou, 32); err == nil {
			cfg.Detection.IoU = float32(v)
		}
	}

	// Capture and display
	if backend := os.Getenv("SCREENDETECT_CAPTURE"); backend != "" {
		cfg.Capture.Backend = strings.ToLower(backend)
	}

	if labels := os.Getenv("SCREENDETECT_SHOW_LABELS"); labels != "" {
		if v, err := strconv.ParseBool(labels); err == nil {
			cfg.Display.ShowLabels = v
		}
	}

	if dir := os.Getenv("SCREENDETECT_SCREENSHOT_DIR"); dir != "" {
		cfg.Screenshots.Dir = dir
	}

	// Ambient
	if addr := os.Getenv("SCREENDETECT_METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	if db := os.Getenv("SCREENDETECT_HISTORY_DB"); db != "" {
		cfg.Benchmark.History = db
	}

	if level := os.Getenv("SCREENDETECT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}
