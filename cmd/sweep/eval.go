package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/pthm-cable/densehair/augment"
	"github.com/pthm-cable/densehair/config"
	"github.com/pthm-cable/densehair/geom"
	"github.com/pthm-cable/densehair/hair"
)

// Result is one augmentation run of the sweep.
type Result struct {
	Eval          int    `csv:"eval"`
	BatchSize     int    `csv:"batch_size"`
	Workers       int    `csv:"workers"`
	GrowthWorkers int    `csv:"growth_workers"`
	Seed          uint64 `csv:"seed"`
	Grown         int    `csv:"grown"`
	Batches       int    `csv:"batches"`
	TotalUS       int64  `csv:"total_us"`
	SearchUS      int64  `csv:"search_us"`
	GrowUS        int64  `csv:"grow_us"`
	Matches       bool   `csv:"matches"` // output identical to the first setting for this seed
}

// Evaluator runs augmentation for grid settings over a fixed set of seeds.
type Evaluator struct {
	base     config.AugmentConfig
	captured *hair.Strands
	skull    *geom.Geometry
	total    int
	seeds    []uint64
	logger   *slog.Logger

	evals     int
	reference map[uint64][]geom.Vertex
	best      Setting
	bestTime  time.Duration
}

// NewEvaluator creates an evaluator. captured is cloned for every run.
func NewEvaluator(base config.AugmentConfig, captured *hair.Strands, skull *geom.Geometry, total int, seeds []uint64) *Evaluator {
	return &Evaluator{
		base:      base,
		captured:  captured,
		skull:     skull,
		total:     total,
		seeds:     seeds,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		reference: make(map[uint64][]geom.Vertex),
		bestTime:  time.Duration(math.MaxInt64),
	}
}

// Best returns the setting with the lowest mean run time so far.
func (e *Evaluator) Best() (Setting, time.Duration) {
	return e.best, e.bestTime
}

// Evaluate runs s once per seed. The first setting evaluated for a seed
// becomes the reference output every later setting is compared against.
func (e *Evaluator) Evaluate(ctx context.Context, s Setting) ([]Result, error) {
	e.evals++
	cfg := e.base
	s.Apply(&cfg)

	results := make([]Result, 0, len(e.seeds))
	var total time.Duration
	for _, seed := range e.seeds {
		cfg.Seed = seed
		captured := e.captured.Clone()
		before := captured.Geometry.Len()

		a := augment.New(cfg, augment.WithLogger(e.logger))
		report, err := a.Augment(ctx, captured, e.skull, e.total)
		if err != nil {
			return nil, err
		}

		grown := captured.Geometry.Vertices[before:]
		ref, ok := e.reference[seed]
		if !ok {
			e.reference[seed] = grown
			ref = grown
		}

		sample := a.LastSample()
		perf := sample.ToCSV(report.Run)
		total += sample.RunDuration
		results = append(results, Result{
			Eval:          e.evals,
			BatchSize:     s.BatchSize,
			Workers:       s.Workers,
			GrowthWorkers: s.GrowthWorkers,
			Seed:          seed,
			Grown:         report.Grown,
			Batches:       report.Batches,
			TotalUS:       perf.TotalUS,
			SearchUS:      perf.SearchUS,
			GrowUS:        perf.GrowUS,
			Matches:       slices.Equal(ref, grown),
		})
	}

	if mean := total / time.Duration(len(e.seeds)); mean < e.bestTime {
		e.bestTime = mean
		e.best = s
	}
	return results, nil
}

// Mismatches counts results whose output differed from the reference.
func Mismatches(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Matches {
			n++
		}
	}
	return n
}
