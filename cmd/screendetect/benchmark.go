package main

import (
	"fmt"

	"github.com/swdee/go-screendetect/benchmark"
	"github.com/swdee/go-screendetect/config"
	"github.com/swdee/go-screendetect/detect"
	"github.com/swdee/go-screendetect/history"
	"github.com/urfave/cli/v2"
)

func historyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagHistory,
		Usage: "record results in the SQLite database `FILE`",
	}
}

func benchmarkCommand() *cli.Command {
	return &cli.Command{
		Name:   "benchmark",
		Usage:  "measure detector latency over a range of input sizes",
		Flags:  append(modelFlags(), historyFlag()),
		Action: benchmarkAction,
		Subcommands: []*cli.Command{
			{
				Name:  "history",
				Usage: "list previously recorded benchmark runs",
				Flags: []cli.Flag{
					historyFlag(),
					&cli.IntFlag{
						Name:  flagLimit,
						Value: 10,
						Usage: "number of runs to list",
					},
				},
				Action: historyAction,
			},
		},
	}
}

func benchmarkAction(c *cli.Context) error {

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	log, err := newLogger(cfg, "benchmark")

	if err != nil {
		return err
	}

	defer log.Sync()

	classes, err := classNames(cfg)

	if err != nil {
		return err
	}

	opts := benchmarkOptions(cfg)
	opts.Progress = func(size, done, total int) {
		log.Infof("%dx%d progress: %d/%d", size, size, done, total)
	}

	device := "cpu"

	log.Infof("Benchmarking %s with %d warmup and %d timed runs", cfg.Model.Path, opts.Warmup, opts.Runs)

	results, err := benchmark.Run(func(size int) (detect.Detector, error) {
		det, err := openDetector(cfg, classes, size)

		if err != nil {
			return nil, err
		}

		device = det.Device()
		log.Infof("Testing %dx%d on %s", size, size, device)

		return det, nil
	}, opts)

	if err != nil {
		return err
	}

	fmt.Println(benchmark.Table(results))

	rec, err := benchmark.Recommend(results)

	if err != nil {
		return err
	}

	fmt.Println("Recommendations:")
	fmt.Print(rec)

	if cfg.Benchmark.History == "" {
		return nil
	}

	store, err := history.Open(cfg.Benchmark.History)

	if err != nil {
		return err
	}

	defer store.Close()

	if err := store.Save(history.NewRun(cfg.Model.Path, device, opts, results)); err != nil {
		return err
	}

	log.Infof("Results recorded in %s", cfg.Benchmark.History)

	return nil
}

func benchmarkOptions(cfg *config.Config) benchmark.Options {
	opts := benchmark.DefaultOptions()

	opts.Sizes = cfg.Benchmark.Sizes
	opts.Warmup = cfg.Benchmark.Warmup
	opts.Runs = cfg.Benchmark.Runs
	opts.Conf = cfg.Detection.Confidence
	opts.IoU = cfg.Detection.IoU

	return opts
}

func historyAction(c *cli.Context) error {

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	if cfg.Benchmark.History == "" {
		return fmt.Errorf("no history database, set --%s or benchmark.history", flagHistory)
	}

	store, err := history.Open(cfg.Benchmark.History)

	if err != nil {
		return err
	}

	defer store.Close()

	runs, err := store.Recent(c.Int(flagLimit))

	if err != nil {
		return err
	}

	fmt.Println(history.Table(runs))

	return nil
}
