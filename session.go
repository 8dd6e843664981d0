package screendetect

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/swdee/go-screendetect/locate"
)

// FrameStats are the figures shown for the most recent frame
type FrameStats struct {
	FPS        float64
	Detections int
	WindowSize image.Point
}

// SessionState is the mutable state owned by a running Controller
type SessionState struct {
	Target     locate.Target
	Region     locate.Region
	ShowLabels bool
	// Screenshots counts screenshots written successfully
	Screenshots int
	Frames      int
	Stats       FrameStats

	// number of the last screenshot name handed out
	shot int
}

// ToggleLabels flips label drawing and returns the new setting
func (s *SessionState) ToggleLabels() bool {
	s.ShowLabels = !s.ShowLabels
	return s.ShowLabels
}

// NextScreenshot returns the file path for the next screenshot, numbered from
// 1.  Every call uses a new number whether or not the previous save worked.
func (s *SessionState) NextScreenshot(dir, prefix, ext string) string {
	s.shot++
	return filepath.Join(dir, fmt.Sprintf("%s%d%s", prefix, s.shot, ext))
}
