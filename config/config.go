// Package config holds the configuration for the capture loop and the
// supporting command line tools.
package config

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Model configuration
	Model ModelConfig `yaml:"model"`

	// Target process configuration
	Target TargetConfig `yaml:"target"`

	// Detection thresholds
	Detection DetectionConfig `yaml:"detection"`

	// Capture backend configuration
	Capture CaptureConfig `yaml:"capture"`

	// Display window configuration
	Display DisplayConfig `yaml:"display"`

	// Screenshot naming
	Screenshots ScreenshotConfig `yaml:"screenshots"`

	// Classes the model was trained on along with their overlay styling
	Classes []ClassConfig `yaml:"classes"`

	// Benchmark configuration
	Benchmark BenchmarkConfig `yaml:"benchmark"`

	// Metrics endpoint configuration
	Metrics MetricsConfig `yaml:"metrics"`

	// Log configuration
	Log LogConfig `yaml:"log"`
}

// ModelConfig holds the detection model settings
type ModelConfig struct {
	Path      string `yaml:"path"`       // Path to the ONNX model file
	Labels    string `yaml:"labels"`     // Optional labels file, one class per line
	InputSize int    `yaml:"input_size"` // Square model input size in pixels
	Backend   string `yaml:"backend"`    // cpu or cuda
	FP16      bool   `yaml:"fp16"`       // Use half precision on cuda
}

// TargetConfig holds the name of the process whose window is captured
type TargetConfig struct {
	Process string `yaml:"process"`
}

// DetectionConfig holds the thresholds passed to the detector
type DetectionConfig struct {
	Confidence float32 `yaml:"confidence"`
	IoU        float32 `yaml:"iou"`
}

// CaptureConfig selects the screen capture backend
type CaptureConfig struct {
	Backend string `yaml:"backend"` // screen or x11
}

// DisplayConfig holds the preview window settings
type DisplayConfig struct {
	WindowName string  `yaml:"window_name"`
	Scale      float64 `yaml:"scale"`       // Display size relative to the capture region
	ShowLabels bool    `yaml:"show_labels"` // Initial state of the label toggle
}

// ScreenshotConfig defines where and how saved frames are named
type ScreenshotConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
	Ext    string `yaml:"ext"`
}

// ClassConfig defines a detection class and its overlay style
type ClassConfig struct {
	Name   string   `yaml:"name"`
	Color  [3]uint8 `yaml:"color"`  // RGB
	Marker bool     `yaml:"marker"` // Drawn with a heavier box
}

// RGBA returns the class color
func (c ClassConfig) RGBA() color.RGBA {
	return color.RGBA{R: c.Color[0], G: c.Color[1], B: c.Color[2], A: 255}
}

// BenchmarkConfig holds the detector benchmark settings
type BenchmarkConfig struct {
	Sizes   []int  `yaml:"sizes"`
	Warmup  int    `yaml:"warmup"`
	Runs    int    `yaml:"runs"`
	History string `yaml:"history"` // SQLite file results are recorded to, empty disables
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `yaml:"addr"` // Listen address, empty disables the endpoint
}

// LogConfig holds the logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Path:      "best.onnx",
			InputSize: 640,
			Backend:   "cpu",
		},
		Detection: DetectionConfig{
			Confidence: 0.4,
			IoU:        0.5,
		},
		Capture: CaptureConfig{
			Backend: "screen",
		},
		Display: DisplayConfig{
			WindowName: "screendetect",
			Scale:      0.5,
			ShowLabels: true,
		},
		Screenshots: ScreenshotConfig{
			Dir:    ".",
			Prefix: "screenshot_",
			Ext:    ".jpg",
		},
		Classes: DefaultClasses(),
		Benchmark: BenchmarkConfig{
			Sizes:  []int{640, 512, 416, 320},
			Warmup: 10,
			Runs:   100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultClasses returns the two object classes and their marker variants
// along with the colors used to draw them
func DefaultClasses() []ClassConfig {
	return []ClassConfig{
		{Name: "A", Color: [3]uint8{0, 255, 255}},
		{Name: "A_marker", Color: [3]uint8{255, 0, 0}, Marker: true},
		{Name: "B", Color: [3]uint8{255, 255, 0}},
		{Name: "B_marker", Color: [3]uint8{255, 128, 0}, Marker: true},
	}
}

// New returns the default configuration with environment overrides applied
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}

// Load reads the YAML file at path on top of the defaults and then applies
// environment overrides.  An empty path skips the file.
func Load(path string) (*Config, error) {

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)

		if err != nil {
			return nil, errors.Wrapf(err, "error reading config %s", path)
		}

		if err := Parse(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "error parsing config %s", path)
		}
	}

	LoadFromEnv(cfg)

	return cfg, nil
}

// Parse decodes YAML data into cfg, leaving fields absent from the document
// untouched
func Parse(data []byte, cfg *Config) error {

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	// an empty document keeps the defaults
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {

	if c.Detection.Confidence < 0 || c.Detection.Confidence > 1 {
		return fmt.Errorf("confidence threshold must be between 0 and 1, got %v",
			c.Detection.Confidence)
	}

	if c.Detection.IoU < 0 || c.Detection.IoU > 1 {
		return fmt.Errorf("iou threshold must be between 0 and 1, got %v",
			c.Detection.IoU)
	}

	if c.Model.InputSize <= 0 || c.Model.InputSize%32 != 0 {
		return fmt.Errorf("model input size must be a positive multiple of 32, got %d",
			c.Model.InputSize)
	}

	switch c.Model.Backend {
	case "cpu", "cuda":
	default:
		return fmt.Errorf("unknown model backend %q", c.Model.Backend)
	}

	switch c.Capture.Backend {
	case "screen", "x11":
	default:
		return fmt.Errorf("unknown capture backend %q", c.Capture.Backend)
	}

	if c.Display.Scale <= 0 || c.Display.Scale > 4 {
		return fmt.Errorf("display scale must be in (0, 4], got %v", c.Display.Scale)
	}

	if len(c.Classes) == 0 {
		return fmt.Errorf("at least one class must be defined")
	}

	seen := make(map[string]bool)

	for _, cls := range c.Classes {
		if cls.Name == "" {
			return fmt.Errorf("class name cannot be empty")
		}

		if seen[cls.Name] {
			return fmt.Errorf("duplicate class %q", cls.Name)
		}

		seen[cls.Name] = true
	}

	if c.Screenshots.Ext == "" || !strings.HasPrefix(c.Screenshots.Ext, ".") {
		return fmt.Errorf("screenshot extension must start with a dot, got %q",
			c.Screenshots.Ext)
	}

	for _, size := range c.Benchmark.Sizes {
		if size <= 0 || size%32 != 0 {
			return fmt.Errorf("benchmark size must be a positive multiple of 32, got %d", size)
		}
	}

	if c.Benchmark.Runs <= 0 {
		return fmt.Errorf("benchmark runs must be positive, got %d", c.Benchmark.Runs)
	}

	if c.Benchmark.Warmup < 0 {
		return fmt.Errorf("benchmark warmup cannot be negative")
	}

	return nil
}

// ValidateLive checks the settings the capture loop needs on top of Validate
func (c *Config) ValidateLive() error {

	if err := c.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Target.Process) == "" {
		return fmt.Errorf("target process name cannot be empty")
	}

	if c.Model.Path == "" {
		return fmt.Errorf("model path cannot be empty")
	}

	return nil
}

// ClassNames returns the configured class names in model order
func (c *Config) ClassNames() []string {

	names := make([]string, len(c.Classes))

	for i, cls := range c.Classes {
		names[i] = cls.Name
	}

	return names
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Model:
    Path: %s
    Input Size: %d
    Backend: %s (fp16 %v)
  Target:
    Process: %s
  Detection:
    Confidence: %.2f
    IoU: %.2f
  Capture:
    Backend: %s
  Display:
    Scale: %.2f
    Labels: %v
  Screenshots:
    Dir: %s
  Classes: %s
  Metrics:
    Addr: %s`,
		c.Model.Path,
		c.Model.InputSize,
		c.Model.Backend,
		c.Model.FP16,
		c.Target.Process,
		c.Detection.Confidence,
		c.Detection.IoU,
		c.Capture.Backend,
		c.Display.Scale,
		c.Display.ShowLabels,
		c.Screenshots.Dir,
		strings.Join(c.ClassNames(), ", "),
		c.Metrics.Addr,
	)
}
