// Package benchmark measures detector latency and throughput over a range of
// input sizes.
package benchmark

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/detect"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BalancedFPS is the frame rate the largest size must reach to be
// recommended as the balanced choice
const BalancedFPS = 20

// progressEvery is how often, in timed runs, progress is reported
const progressEvery = 20

// Options configure a benchmark
type Options struct {
	// Sizes are the square input sizes tested, largest first
	Sizes []int
	// Warmup runs are discarded before timing
	Warmup int
	// Runs are timed per size
	Runs int
	Conf float32
	IoU  float32
	// Clock times the runs, the wall clock when nil
	Clock clock.Clock
	// Progress is called every 20 timed runs and after the last, may be nil
	Progress func(size, done, total int)
}

// DefaultOptions returns the standard sizes and run counts
func DefaultOptions() Options {
	return Options{
		Sizes:  []int{640, 512, 416, 320},
		Warmup: 10,
		Runs:   100,
		Conf:   0.4,
		IoU:    0.5,
	}
}

// Result holds the timings for one input size in milliseconds
type Result struct {
	Size int
	Mean float64
	Std  float64
	Min  float64
	Max  float64
	FPS  float64
}

// Opener returns a detector configured for a square input size
type Opener func(size int) (detect.Detector, error)

// Run benchmarks a detector for each size in opts.  A random image of the
// size is run Warmup times and then timed for Runs iterations.
func Run(open Opener, opts Options) ([]Result, error) {

	if len(opts.Sizes) == 0 {
		return nil, errors.New("no sizes to benchmark")
	}

	if opts.Runs < 1 {
		return nil, errors.Errorf("invalid run count %d", opts.Runs)
	}

	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	results := make([]Result, 0, len(opts.Sizes))

	for _, size := range opts.Sizes {

		res, err := runSize(open, size, opts)

		if err != nil {
			return results, errors.Wrapf(err, "size %d", size)
		}

		results = append(results, res)
	}

	return results, nil
}

func runSize(open Opener, size int, opts Options) (Result, error) {

	det, err := open(size)

	if err != nil {
		return Result{}, errors.Wrap(err, "error opening detector")
	}

	defer det.Close()

	img := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer img.Close()

	gocv.RandU(&img, gocv.NewScalar(0, 0, 0, 0), gocv.NewScalar(255, 255, 255, 0))

	for i := 0; i < opts.Warmup; i++ {
		if _, err := det.Detect(img, opts.Conf, opts.IoU); err != nil {
			return Result{}, errors.Wrap(err, "warmup failed")
		}
	}

	times := make([]float64, opts.Runs)

	for i := 0; i < opts.Runs; i++ {

		start := opts.Clock.Now()

		if _, err := det.Detect(img, opts.Conf, opts.IoU); err != nil {
			return Result{}, errors.Wrapf(err, "run %d failed", i)
		}

		times[i] = float64(opts.Clock.Since(start)) / float64(time.Millisecond)

		if opts.Progress != nil && ((i+1)%progressEvery == 0 || i+1 == opts.Runs) {
			opts.Progress(size, i+1, opts.Runs)
		}
	}

	return summarise(size, times), nil
}

// summarise computes the statistics of times given in milliseconds, the
// deviation is the population standard deviation
func summarise(size int, times []float64) Result {

	mean, std := stat.PopMeanStdDev(times, nil)

	res := Result{
		Size: size,
		Mean: mean,
		Std:  std,
		Min:  floats.Min(times),
		Max:  floats.Max(times),
	}

	if mean > 0 {
		res.FPS = 1000 / mean
	}

	return res
}

// Recommendation picks results for different use cases
type Recommendation struct {
	// Fastest has the highest frame rate
	Fastest Result
	// Balanced is the first size if it reaches BalancedFPS, otherwise the
	// second
	Balanced Result
	// Accuracy is the first, largest, size
	Accuracy Result
}

// Recommend chooses sizes from results which must be in the order they were
// benchmarked
func Recommend(results []Result) (Recommendation, error) {

	if len(results) == 0 {
		return Recommendation{}, errors.New("no results")
	}

	rec := Recommendation{
		Fastest:  results[0],
		Balanced: results[0],
		Accuracy: results[0],
	}

	for _, r := range results[1:] {
		if r.FPS > rec.Fastest.FPS {
			rec.Fastest = r
		}
	}

	if results[0].FPS < BalancedFPS && len(results) > 1 {
		rec.Balanced = results[1]
	}

	return rec, nil
}

// String returns the recommendations one per line
func (r Recommendation) String() string {
	return fmt.Sprintf("Real-time: %s\nBalanced:  %s\nAccuracy:  %s\n",
		describe(r.Fastest), describe(r.Balanced), describe(r.Accuracy))
}

func describe(r Result) string {
	return fmt.Sprintf("%dx%d (%.1f FPS)", r.Size, r.Size, r.FPS)
}

// Table renders results as a text table
func Table(results []Result) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Size", "Mean (ms)", "Std (ms)", "Min (ms)", "Max (ms)", "FPS"})

	for _, r := range results {
		t.AppendRow(table.Row{
			fmt.Sprintf("%dx%d", r.Size, r.Size),
			fmt.Sprintf("%.2f", r.Mean),
			fmt.Sprintf("%.2f", r.Std),
			fmt.Sprintf("%.2f", r.Min),
			fmt.Sprintf("%.2f", r.Max),
			fmt.Sprintf("%.1f", r.FPS),
		})
	}

	return t.Render()
}
