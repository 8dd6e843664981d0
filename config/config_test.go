package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Detection.Confidence, test.ShouldAlmostEqual, float32(0.4))
	test.That(t, cfg.Detection.IoU, test.ShouldAlmostEqual, float32(0.5))
	test.That(t, cfg.Display.ShowLabels, test.ShouldBeTrue)
	test.That(t, cfg.ClassNames(), test.ShouldResemble, []string{"A", "A_marker", "B", "B_marker"})

	// no target process configured yet
	test.That(t, cfg.ValidateLive(), test.ShouldNotBeNil)
}

func TestValidate(t *testing.T) {

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"confidence above one", func(c *Config) { c.Detection.Confidence = 1.5 }},
		{"negative iou", func(c *Config) { c.Detection.IoU = -0.1 }},
		{"input size not multiple of 32", func(c *Config) { c.Model.InputSize = 600 }},
		{"unknown model backend", func(c *Config) { c.Model.Backend = "tpu" }},
		{"unknown capture backend", func(c *Config) { c.Capture.Backend = "gdi" }},
		{"zero display scale", func(c *Config) { c.Display.Scale = 0 }},
		{"no classes", func(c *Config) { c.Classes = nil }},
		{"duplicate class", func(c *Config) {
			c.Classes = []ClassConfig{{Name: "A"}, {Name: "A"}}
		}},
		{"extension without dot", func(c *Config) { c.Screenshots.Ext = "png" }},
		{"bad benchmark size", func(c *Config) { c.Benchmark.Sizes = []int{100} }},
		{"zero benchmark runs", func(c *Config) { c.Benchmark.Runs = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			test.That(t, cfg.Validate(), test.ShouldNotBeNil)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	doc := `
target:
  process: TARGET.exe
detection:
  confidence: 0.6
display:
  show_labels: false
classes:
  - name: enemy
    color: [255, 0, 0]
  - name: enemy_head
    color: [0, 0, 255]
    marker: true
`
	test.That(t, os.WriteFile(path, []byte(doc), 0o644), test.ShouldBeNil)

	cfg, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ValidateLive(), test.ShouldBeNil)

	test.That(t, cfg.Target.Process, test.ShouldEqual, "TARGET.exe")
	test.That(t, cfg.Detection.Confidence, test.ShouldAlmostEqual, float32(0.6))
	// untouched fields keep their defaults
	test.That(t, cfg.Detection.IoU, test.ShouldAlmostEqual, float32(0.5))
	test.That(t, cfg.Display.ShowLabels, test.ShouldBeFalse)
	test.That(t, cfg.ClassNames(), test.ShouldResemble, []string{"enemy", "enemy_head"})
	test.That(t, cfg.Classes[1].Marker, test.ShouldBeTrue)
	test.That(t, cfg.Classes[1].RGBA().B, test.ShouldEqual, uint8(255))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	test.That(t, os.WriteFile(path, []byte("unknown_section: 1\n"), 0o644), test.ShouldBeNil)

	_, err = Load(path)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg := Default()
	test.That(t, Parse(nil, cfg), test.ShouldBeNil)
	test.That(t, cfg.Model.InputSize, test.ShouldEqual, 640)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCREENDETECT_PROCESS", "game.exe")
	t.Setenv("SCREENDETECT_CONF", "0.25")
	t.Setenv("SCREENDETECT_IOU", "not-a-number")
	t.Setenv("SCREENDETECT_CAPTURE", "X11")
	t.Setenv("SCREENDETECT_SHOW_LABELS", "false")
	t.Setenv("SCREENDETECT_METRICS_ADDR", ":9100")

	cfg := New()

	test.That(t, cfg.Target.Process, test.ShouldEqual, "game.exe")
	test.That(t, cfg.Detection.Confidence, test.ShouldAlmostEqual, float32(0.25))
	// unparsable values are ignored
	test.That(t, cfg.Detection.IoU, test.ShouldAlmostEqual, float32(0.5))
	test.That(t, cfg.Capture.Backend, test.ShouldEqual, "x11")
	test.That(t, cfg.Display.ShowLabels, test.ShouldBeFalse)
	test.That(t, cfg.Metrics.Addr, test.ShouldEqual, ":9100")
}
