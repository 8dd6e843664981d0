package screendetect

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// fpsWindow is the minimum time frames are counted over before a new rate is
// calculated
const fpsWindow = time.Second

// FPSMeter measures the frame rate over consecutive windows of at least one
// second
type FPSMeter struct {
	clock  clock.Clock
	start  time.Time
	frames int
	fps    float64
}

// NewFPSMeter returns a meter whose first window starts now
func NewFPSMeter(clk clock.Clock) *FPSMeter {
	return &FPSMeter{
		clock: clk,
		start: clk.Now(),
	}
}

// Tick counts a frame.  Once the window has lasted at least a second the rate
// is recalculated as frames over elapsed time, rounded to one decimal place,
// and a new window is started.  The bool result reports whether the rate was
// updated.
func (m *FPSMeter) Tick() (float64, bool) {

	m.frames++

	elapsed := m.clock.Since(m.start)

	if elapsed < fpsWindow {
		return m.fps, false
	}

	m.fps = math.Round(float64(m.frames)/elapsed.Seconds()*10) / 10
	m.frames = 0
	m.start = m.clock.Now()

	return m.fps, true
}

// FPS returns the rate calculated for the last completed window
func (m *FPSMeter) FPS() float64 {
	return m.fps
}

// Reset discards the frames counted in the current window
func (m *FPSMeter) Reset() {
	m.frames = 0
	m.start = m.clock.Now()
}
