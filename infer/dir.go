package infer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/swdee/go-screendetect/detect"
	"gocv.io/x/gocv"
)

// FileResult is the outcome of annotating one image in a directory
type FileResult struct {
	Path       string
	Output     string
	Detections []detect.Detection
	Err        error
}

// IsAnnotated reports whether path is an output written by a previous run
func IsAnnotated(path string) bool {
	return strings.HasSuffix(strings.TrimSuffix(path, filepath.Ext(path)), "_annotated")
}

// Images lists the images in dir that have not already been annotated,
// sorted by name
func Images(dir string) ([]string, error) {

	entries, err := os.ReadDir(dir)

	if err != nil {
		return nil, errors.Wrap(err, "error reading directory")
	}

	paths := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return filepath.Join(dir, e.Name()), !e.IsDir() && IsImage(e.Name()) && !IsAnnotated(e.Name())
	})

	sort.Strings(paths)

	return paths, nil
}

// Dir annotates every image in dir, saving each next to its source.  Images
// are processed concurrently, one per detector in pool.  Per file errors are
// reported in the results, results are in file name order.
func Dir(ctx context.Context, pool *detect.Pool, dir string, opts Options) ([]FileResult, error) {

	opts.defaults()

	paths, err := Images(dir)

	if err != nil {
		return nil, err
	}

	results := make([]FileResult, len(paths))
	sem := make(chan struct{}, pool.Size())

	var wg sync.WaitGroup

	for i, path := range paths {

		if ctx.Err() != nil {
			results[i] = FileResult{Path: path, Err: ctx.Err()}
			continue
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			det := pool.Get()
			defer pool.Return(det)

			results[i] = annotateFile(det, path, opts)
		}(i, path)
	}

	wg.Wait()

	return results, nil
}

func annotateFile(det detect.Detector, path string, opts Options) FileResult {

	res := FileResult{
		Path:   path,
		Output: ImageOutputPath(path),
	}

	img, err := LoadImage(path)
	defer img.Close()

	if err != nil {
		res.Err = err
		return res
	}

	dets, annotated, err := Annotate(det, img, opts)
	defer annotated.Close()

	if err != nil {
		res.Err = err
		return res
	}

	res.Detections = dets

	if !gocv.IMWrite(res.Output, annotated) {
		res.Err = errors.Errorf("error writing %s", res.Output)
	}

	opts.Log.Debugf("Annotated %s with %d detections", path, len(dets))

	return res
}
