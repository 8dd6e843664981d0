// Package history records benchmark runs in a SQLite database.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/swdee/go-screendetect/benchmark"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BenchmarkRun is one invocation of the benchmark command
type BenchmarkRun struct {
	ID        uint              `gorm:"primaryKey"`
	Model     string            `gorm:"not null;index"`
	Device    string            `gorm:"not null"`
	Warmup    int               `gorm:"not null"`
	Runs      int               `gorm:"not null"`
	Results   []BenchmarkResult `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"autoCreateTime;index"`
}

// BenchmarkResult holds the timings of one input size within a run
type BenchmarkResult struct {
	ID     uint    `gorm:"primaryKey"`
	RunID  uint    `gorm:"not null;index"`
	Size   int     `gorm:"not null"`
	MeanMs float64 `gorm:"not null"`
	StdMs  float64 `gorm:"not null"`
	MinMs  float64 `gorm:"not null"`
	MaxMs  float64 `gorm:"not null"`
	FPS    float64 `gorm:"not null"`
}

// NewRun builds a BenchmarkRun from benchmark results
func NewRun(model, device string, opts benchmark.Options, results []benchmark.Result) *BenchmarkRun {

	run := &BenchmarkRun{
		Model:  model,
		Device: device,
		Warmup: opts.Warmup,
		Runs:   opts.Runs,
	}

	for _, r := range results {
		run.Results = append(run.Results, BenchmarkResult{
			Size:   r.Size,
			MeanMs: r.Mean,
			StdMs:  r.Std,
			MinMs:  r.Min,
			MaxMs:  r.Max,
			FPS:    r.FPS,
		})
	}

	return run
}

// Store is a benchmark history database
type Store struct {
	db *gorm.DB
}

// Open opens or creates the SQLite database at path, creating its directory
// if needed, and migrates the schema
func Open(path string) (*Store, error) {

	if path == "" {
		return nil, errors.New("history database path is empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	s := &Store{db: db}

	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Migrate creates or updates the schema
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&BenchmarkRun{}, &BenchmarkResult{}); err != nil {
		return errors.Wrap(err, "failed to initialize database schema")
	}
	return nil
}

// Save inserts run and its results
func (s *Store) Save(run *BenchmarkRun) error {
	if result := s.db.Create(run); result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert benchmark run")
	}
	return nil
}

// Recent returns up to limit runs, newest first, with their results in
// benchmark order
func (s *Store) Recent(limit int) ([]BenchmarkRun, error) {

	var runs []BenchmarkRun

	result := s.db.
		Preload("Results", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&runs)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query benchmark runs")
	}

	return runs, nil
}

// Close closes the database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()

	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}

	return sqlDB.Close()
}

// Table renders runs as a text table with one row per result
func Table(runs []BenchmarkRun) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Run", "Date", "Model", "Device", "Size", "Mean (ms)", "Std (ms)", "FPS"})

	for _, run := range runs {
		for _, r := range run.Results {
			t.AppendRow(table.Row{
				run.ID,
				run.CreatedAt.Format("2006-01-02 15:04"),
				filepath.Base(run.Model),
				run.Device,
				fmt.Sprintf("%dx%d", r.Size, r.Size),
				fmt.Sprintf("%.2f", r.MeanMs),
				fmt.Sprintf("%.2f", r.StdMs),
				fmt.Sprintf("%.1f", r.FPS),
			})
		}
	}

	return t.Render()
}
