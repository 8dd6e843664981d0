// Package infer runs the detector over image files, video files and webcams
// outside of the live capture loop.
package infer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/swdee/go-screendetect/detect"
	"github.com/swdee/go-screendetect/display"
	"github.com/swdee/go-screendetect/render"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/image/webp"
)

// Webcam is the path that selects the default camera
const Webcam = "0"

var (
	// ImageExtensions are the file extensions treated as images
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}
	// VideoExtensions are the file extensions treated as video
	VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}
)

// ErrUnsupported is returned for a path that is neither an image nor video
var ErrUnsupported = errors.New("unsupported file format")

// IsImage reports whether path has an image extension
func IsImage(path string) bool {
	return lo.Contains(ImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// IsVideo reports whether path has a video extension
func IsVideo(path string) bool {
	return lo.Contains(VideoExtensions, strings.ToLower(filepath.Ext(path)))
}

// Check returns ErrUnsupported unless path is an image, a video or Webcam
func Check(path string) error {
	if path == Webcam || IsImage(path) || IsVideo(path) {
		return nil
	}

	return errors.Wrapf(ErrUnsupported, "%s, supported: %s", filepath.Ext(path),
		strings.Join(lo.Flatten([][]string{ImageExtensions, VideoExtensions}), ", "))
}

// ImageOutputPath returns where the annotated copy of an image is saved, the
// same directory and extension with _annotated appended to the name
func ImageOutputPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_annotated" + ext
}

// VideoOutputPath returns where the annotated copy of a video is saved, always
// as mp4
func VideoOutputPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_annotated.mp4"
}

// Options configure inference
type Options struct {
	Conf    float32
	IoU     float32
	Palette *render.Palette
	Font    render.Font
	// LineThickness of the bounding boxes
	LineThickness int
	Log           *zap.SugaredLogger
	// Progress is called after each video frame when writing to a file, total
	// is zero for live sources
	Progress func(frame, total int)
}

func (o *Options) defaults() {
	if o.Palette == nil {
		o.Palette = render.PaletteFor(nil)
	}

	if o.Font.Scale == 0 {
		o.Font = render.DefaultFont()
	}

	if o.LineThickness == 0 {
		o.LineThickness = 2
	}

	if o.Log == nil {
		o.Log = zap.NewNop().Sugar()
	}
}

// LoadImage reads an image file as BGR.  WebP files OpenCV was built without
// support for are decoded in Go.
func LoadImage(path string) (gocv.Mat, error) {

	img := gocv.IMRead(path, gocv.IMReadColor)

	if !img.Empty() {
		return img, nil
	}

	img.Close()

	if strings.ToLower(filepath.Ext(path)) != ".webp" {
		return gocv.NewMat(), errors.Errorf("could not read image %s", path)
	}

	f, err := os.Open(path)

	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "error opening image")
	}

	defer f.Close()

	decoded, err := webp.Decode(f)

	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "error decoding webp %s", path)
	}

	return gocv.ImageToMatRGB(decoded)
}

// Annotate runs det over img and returns its detections and an annotated copy
// which the caller must Close
func Annotate(det detect.Detector, img gocv.Mat, opts Options) ([]detect.Detection, gocv.Mat, error) {

	opts.defaults()

	dets, err := det.Detect(img, opts.Conf, opts.IoU)

	if err != nil {
		return nil, gocv.NewMat(), errors.Wrap(err, "detection failed")
	}

	annotated := img.Clone()
	render.DetectionBoxes(render.NewMatCanvas(&annotated), dets, opts.Palette, opts.Font, opts.LineThickness)

	return dets, annotated, nil
}

// Image annotates the image at path.  With out set the result is written
// there, otherwise it is shown on surface until a key is pressed or ctx is
// done.
func Image(ctx context.Context, det detect.Detector, path, out string, opts Options,
	surface display.Surface) ([]detect.Detection, error) {

	opts.defaults()

	img, err := LoadImage(path)
	defer img.Close()

	if err != nil {
		return nil, err
	}

	dets, annotated, err := Annotate(det, img, opts)
	defer annotated.Close()

	if err != nil {
		return nil, err
	}

	if out != "" {
		if !gocv.IMWrite(out, annotated) {
			return dets, errors.Errorf("error writing %s", out)
		}

		opts.Log.Infof("Saved to %s", out)
		return dets, nil
	}

	if err := surface.Show(annotated); err != nil {
		return dets, err
	}

	for ctx.Err() == nil && surface.PollKey(50*time.Millisecond) < 0 {
	}

	return dets, nil
}

// VideoStats describes a processed video
type VideoStats struct {
	Width       int
	Height      int
	FPS         float64
	TotalFrames int
	Frames      int
	Detections  int
	Stopped     bool
}

// Video annotates each frame of src, a video file or Webcam.  With out set
// the frames are written to an mp4v file, otherwise they are shown on surface
// until q is pressed or the video ends.
func Video(ctx context.Context, det detect.Detector, src, out string, opts Options,
	surface display.Surface) (stats VideoStats, err error) {

	opts.defaults()

	vc, err := gocv.OpenVideoCapture(src)

	if err != nil {
		return stats, errors.Wrapf(err, "could not open video %s", src)
	}

	defer vc.Close()

	if !vc.IsOpened() {
		return stats, errors.Errorf("could not open video %s", src)
	}

	stats.Width = int(vc.Get(gocv.VideoCaptureFrameWidth))
	stats.Height = int(vc.Get(gocv.VideoCaptureFrameHeight))
	stats.FPS = vc.Get(gocv.VideoCaptureFPS)
	stats.TotalFrames = int(vc.Get(gocv.VideoCaptureFrameCount))

	opts.Log.Infof("Resolution: %dx%d, FPS: %.0f, Total frames: %d",
		stats.Width, stats.Height, stats.FPS, stats.TotalFrames)

	var writer *gocv.VideoWriter

	if out != "" {
		fps := stats.FPS

		if fps <= 0 {
			fps = 30
		}

		writer, err = gocv.VideoWriterFile(out, "mp4v", fps, stats.Width, stats.Height, true)

		if err != nil {
			return stats, errors.Wrapf(err, "error creating %s", out)
		}

		defer func() {
			err = multierr.Append(err, writer.Close())

			if err == nil {
				opts.Log.Infof("Saved to %s", out)
			}
		}()
	}

	frame := gocv.NewMat()
	defer frame.Close()

	for ctx.Err() == nil {

		if ok := vc.Read(&frame); !ok || frame.Empty() {
			break
		}

		stats.Frames++

		dets, annotated, aerr := Annotate(det, frame, opts)

		if aerr != nil {
			annotated.Close()
			return stats, errors.Wrapf(aerr, "frame %d", stats.Frames)
		}

		stats.Detections += len(dets)

		if writer != nil {
			werr := writer.Write(annotated)
			annotated.Close()

			if werr != nil {
				return stats, errors.Wrapf(werr, "error writing frame %d", stats.Frames)
			}

			if opts.Progress != nil {
				opts.Progress(stats.Frames, stats.TotalFrames)
			}

			continue
		}

		serr := surface.Show(annotated)
		annotated.Close()

		if serr != nil {
			return stats, serr
		}

		if display.ParseKey(surface.PollKey(time.Millisecond)) == display.Quit {
			stats.Stopped = true
			opts.Log.Info("Stopped by user")
			break
		}
	}

	return stats, nil
}

// FormatDetections returns one numbered line per detection
func FormatDetections(dets []detect.Detection) []string {
	return lo.Map(dets, func(d detect.Detection, i int) string {
		return fmt.Sprintf("%d. Class %s: %.2f%%", i+1, d.ClassName, d.Confidence*100)
	})
}
