package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Report holds the outcome of one augmentation run.
type Report struct {
	Run       int    `csv:"run"`
	Seed      uint64 `csv:"seed"`
	Requested int    `csv:"requested"`
	Planned   int    `csv:"planned"` // sum of per-face quotas
	Grown     int    `csv:"grown"`
	Skipped   string `csv:"skipped"` // reason nothing was grown, if any

	// Inputs
	ScalpFaces      int     `csv:"scalp_faces"`
	ScalpArea       float64 `csv:"scalp_area"`
	CapturedStrands int     `csv:"captured_strands"`
	StrandLength    int     `csv:"strand_length"`
	Neighbors       int     `csv:"neighbors"`
	Batches         int     `csv:"batches"`

	// Grown strand shape
	ArcMean float64 `csv:"arc_mean"`
	ArcStd  float64 `csv:"arc_std"`
	ArcP10  float64 `csv:"arc_p10"`
	ArcP50  float64 `csv:"arc_p50"`
	ArcP90  float64 `csv:"arc_p90"`

	// Neighbor pruning
	ActiveMean float64 `csv:"active_mean"` // neighbors left per strand after growth
	Stalled    int     `csv:"stalled"`
}

// StrandRow is one grown strand for per-strand CSV output.
type StrandRow struct {
	Run       int     `csv:"run"`
	Strand    int     `csv:"strand"`
	RootX     float32 `csv:"root_x"`
	RootY     float32 `csv:"root_y"`
	RootZ     float32 `csv:"root_z"`
	ArcLength float32 `csv:"arc_length"`
	Active    int     `csv:"active"`
}

// Summary is the distribution of a sample.
type Summary struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes mean, standard deviation and percentiles of values.
// An empty slice yields the zero Summary.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	return Summary{
		Mean: mean,
		Std:  std,
		P10:  stat.Quantile(0.10, stat.LinInterp, sorted, nil),
		P50:  stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		P90:  stat.Quantile(0.90, stat.LinInterp, sorted, nil),
	}
}

// SetArc fills the arc-length columns from a summary.
func (r *Report) SetArc(s Summary) {
	r.ArcMean = s.Mean
	r.ArcStd = s.Std
	r.ArcP10 = s.P10
	r.ArcP50 = s.P50
	r.ArcP90 = s.P90
}

// LogValue implements slog.LogValuer for structured logging.
func (r Report) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("run", r.Run),
		slog.Int("requested", r.Requested),
		slog.Int("planned", r.Planned),
		slog.Int("grown", r.Grown),
		slog.Int("scalp_faces", r.ScalpFaces),
		slog.Float64("scalp_area", r.ScalpArea),
		slog.Int("captured_strands", r.CapturedStrands),
		slog.Int("strand_length", r.StrandLength),
		slog.Int("neighbors", r.Neighbors),
		slog.Int("batches", r.Batches),
	}
	if r.Skipped != "" {
		attrs = append(attrs, slog.String("skipped", r.Skipped))
	}
	if r.Grown > 0 {
		attrs = append(attrs,
			slog.Float64("arc_mean", r.ArcMean),
			slog.Float64("arc_std", r.ArcStd),
			slog.Float64("arc_p50", r.ArcP50),
			slog.Float64("active_mean", r.ActiveMean),
			slog.Int("stalled", r.Stalled),
		)
	}
	return slog.GroupValue(attrs...)
}
