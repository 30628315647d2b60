// Package augment runs the full density augmentation pipeline: scalp
// selection, area-weighted planning, parallel neighbor search and strand
// growth.
package augment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/densehair/config"
	"github.com/pthm-cable/densehair/geom"
	"github.com/pthm-cable/densehair/growth"
	"github.com/pthm-cable/densehair/hair"
	"github.com/pthm-cable/densehair/neighbors"
	"github.com/pthm-cable/densehair/rng"
	"github.com/pthm-cable/densehair/scalp"
	"github.com/pthm-cable/densehair/telemetry"
)

// Reasons a run grows nothing without failing.
const (
	SkipZeroRequested = "zero_requested"
	SkipNoScalp       = "no_scalp"
	SkipZeroPlanned   = "zero_planned"
	// SkipNoHair is reported by callers whose captured hair failed to load.
	SkipNoHair = "no_hair"
)

// Mesh receives finished geometry. It owns the buffer afterwards.
type Mesh interface {
	SetGeometry(g *geom.Geometry)
}

// Augmenter grows new strands between captured ones.
// An Augmenter must not be used by more than one goroutine at a time.
type Augmenter struct {
	cfg     config.AugmentConfig
	streams rng.Streams
	seed    uint64
	logger  *slog.Logger
	perf    *telemetry.PerfCollector
	runs    int

	lastSample telemetry.PerfSample
	lastGrowth growth.Stats
}

// Option configures an Augmenter.
type Option func(*Augmenter)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Augmenter) { a.logger = l }
}

// WithStreams replaces the seeded random streams, e.g. with a fixed source
// in tests.
func WithStreams(s rng.Streams) Option {
	return func(a *Augmenter) { a.streams = s }
}

// WithPerfCollector records phase timings into pc.
func WithPerfCollector(pc *telemetry.PerfCollector) Option {
	return func(a *Augmenter) { a.perf = pc }
}

// New creates an Augmenter from the augment section of the config.
func New(cfg config.AugmentConfig, opts ...Option) *Augmenter {
	pcg := rng.NewPCG(cfg.Seed)
	a := &Augmenter{
		cfg:     cfg,
		streams: pcg,
		seed:    pcg.Seed,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.perf == nil {
		a.perf = telemetry.NewPerfCollector(0)
	}
	return a
}

// Seed returns the seed the default streams were derived from.
func (a *Augmenter) Seed() uint64 {
	return a.seed
}

// Perf returns the phase timing collector.
func (a *Augmenter) Perf() *telemetry.PerfCollector {
	return a.perf
}

// LastSample returns the phase timings of the most recent run.
func (a *Augmenter) LastSample() telemetry.PerfSample {
	return a.lastSample
}

// LastGrowth returns the per-strand stats of the most recent run.
func (a *Augmenter) LastGrowth() growth.Stats {
	return a.lastGrowth
}

// Augment grows about total new strands over the scalp region of skull and
// appends them to captured.Geometry. The captured roots are left unchanged.
//
// An empty or zero-area scalp, or a zero total, grows nothing and is not an
// error. Missing captured roots and search or growth failures return an
// error. In every case where nothing is grown, the geometry is untouched.
func (a *Augmenter) Augment(ctx context.Context, captured *hair.Strands, skull *geom.Geometry, total int) (telemetry.Report, error) {
	a.runs++
	a.perf.StartRun()
	report, err := a.augment(ctx, captured, skull, total)
	a.lastSample = a.perf.EndRun()

	log := a.logger.With("run", report.Run)
	switch {
	case err != nil:
		log.Error("augmentation failed", "error", err)
	case report.Skipped != "":
		log.Warn("augmentation grew no strands", "reason", report.Skipped)
	default:
		log.Info("augmentation complete", "report", report, "perf", a.lastSample.ToCSV(report.Run))
	}
	return report, err
}

func (a *Augmenter) augment(ctx context.Context, captured *hair.Strands, skull *geom.Geometry, total int) (telemetry.Report, error) {
	report := telemetry.Report{
		Run:          a.runs,
		Seed:         a.seed,
		Requested:    total,
		StrandLength: a.cfg.StrandLength,
	}
	a.lastGrowth = growth.Stats{}

	if total < 0 {
		return report, fmt.Errorf("augment: negative strand total %d", total)
	}
	if captured == nil {
		return report, neighbors.ErrNoCapturedRoots
	}
	report.CapturedStrands = captured.Count()

	a.perf.StartPhase(telemetry.PhaseSelect)
	faces := scalp.Select(skull, float32(a.cfg.ColorThreshold))
	report.ScalpFaces = len(faces)
	a.logger.Debug("scalp selected", "faces", len(faces))

	a.perf.StartPhase(telemetry.PhasePlan)
	layout, err := scalp.Plan(skull, faces, total)
	if errors.Is(err, scalp.ErrNoScalp) {
		report.Skipped = SkipNoScalp
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("augment: %w", err)
	}
	report.ScalpArea = layout.TotalArea
	report.Planned = layout.Strands
	report.Batches = neighbors.Batches(layout.Strands, a.batchSize())
	a.logger.Debug("strands planned", "requested", total, "planned", layout.Strands, "area", layout.TotalArea)

	// Captured roots are a precondition even when nothing will grow.
	if err := captured.Validate(); err != nil {
		if errors.Is(err, hair.ErrNoStrands) {
			return report, neighbors.ErrNoCapturedRoots
		}
		return report, fmt.Errorf("augment: %w", err)
	}

	if total == 0 {
		report.Skipped = SkipZeroRequested
		return report, nil
	}
	if layout.Strands == 0 {
		report.Skipped = SkipZeroPlanned
		return report, nil
	}

	a.perf.StartPhase(telemetry.PhaseIndex)
	index, err := neighbors.NewIndex(neighbors.Kind(a.cfg.Index), captured.RootPositions(), captured.Roots)
	if err != nil {
		return report, fmt.Errorf("augment: %w", err)
	}
	report.Neighbors = min(a.neighborCount(), index.Len())

	a.perf.StartPhase(telemetry.PhaseSearch)
	res, err := neighbors.Search(ctx, layout, index, neighbors.Options{
		Neighbors: a.cfg.Neighbors,
		BatchSize: a.cfg.BatchSize,
		Workers:   a.cfg.Workers,
		Streams:   a.streams,
	})
	if err != nil {
		return report, fmt.Errorf("augment: neighbor search: %w", err)
	}

	a.perf.StartPhase(telemetry.PhaseGrow)
	grown := &geom.Geometry{}
	stats, err := growth.Grow(ctx, grown, captured, res, growth.Options{
		Length:  a.cfg.StrandLength,
		Workers: a.cfg.GrowthWorkers,
		Streams: a.streams,
	})
	if err != nil {
		return report, fmt.Errorf("augment: growth: %w", err)
	}

	captured.Geometry.AppendGeometry(grown)
	a.lastGrowth = stats

	report.Grown = len(stats.Strands)
	report.StrandLength = stats.Length
	summarizeGrowth(&report, stats)
	return report, nil
}

// Deliver runs Augment and hands the resulting strand geometry to mesh in a
// single SetGeometry call. mesh is called even when nothing was grown, but not
// on error.
func (a *Augmenter) Deliver(ctx context.Context, mesh Mesh, captured *hair.Strands, skull *geom.Geometry, total int) (telemetry.Report, error) {
	report, err := a.Augment(ctx, captured, skull, total)
	if err != nil {
		return report, err
	}
	mesh.SetGeometry(&captured.Geometry)
	return report, nil
}

// StrandRows returns per-strand CSV rows for the most recent run.
func (a *Augmenter) StrandRows() []telemetry.StrandRow {
	rows := make([]telemetry.StrandRow, len(a.lastGrowth.Strands))
	for i, s := range a.lastGrowth.Strands {
		rows[i] = telemetry.StrandRow{
			Run:       a.runs,
			Strand:    i,
			RootX:     s.Root.X,
			RootY:     s.Root.Y,
			RootZ:     s.Root.Z,
			ArcLength: s.ArcLength,
			Active:    s.Active,
		}
	}
	return rows
}

func (a *Augmenter) batchSize() int {
	if a.cfg.BatchSize > 0 {
		return a.cfg.BatchSize
	}
	return neighbors.DefaultBatchSize
}

func (a *Augmenter) neighborCount() int {
	if a.cfg.Neighbors > 0 {
		return a.cfg.Neighbors
	}
	return neighbors.DefaultCount
}

func summarizeGrowth(r *telemetry.Report, stats growth.Stats) {
	if len(stats.Strands) == 0 {
		return
	}
	arcs := make([]float64, len(stats.Strands))
	var active float64
	for i, s := range stats.Strands {
		arcs[i] = float64(s.ArcLength)
		active += float64(s.Active)
	}
	r.SetArc(telemetry.Summarize(arcs))
	r.ActiveMean = active / float64(len(stats.Strands))
	r.Stalled = stats.Stalled()
}
