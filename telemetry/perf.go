package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one augmentation run.
const (
	PhaseSelect = "select"
	PhasePlan   = "plan"
	PhaseIndex  = "index"
	PhaseSearch = "search"
	PhaseGrow   = "grow"
)

// Phases lists the run phases in execution order.
var Phases = []string{PhaseSelect, PhasePlan, PhaseIndex, PhaseSearch, PhaseGrow}

// PerfSample holds timing data for a single run.
type PerfSample struct {
	RunDuration time.Duration
	Phases      map[string]time.Duration
}

// PerfCollector tracks phase timings over a rolling window of runs.
// It is not safe for concurrent use.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	runStart      time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of runs to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 16
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartRun begins timing a new run.
func (p *PerfCollector) StartRun() {
	p.runStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndRun finishes timing the current run, records the sample and returns it.
func (p *PerfCollector) EndRun() PerfSample {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}

	sample := PerfSample{
		RunDuration: now.Sub(p.runStart),
		Phases:      p.currentPhases,
	}

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	return sample
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Runs           int
	AvgRunDuration time.Duration
	MinRunDuration time.Duration
	MaxRunDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total run time
	PhasePct map[string]float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total time.Duration
	var minRun, maxRun time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.RunDuration

		if i == 0 || s.RunDuration < minRun {
			minRun = s.RunDuration
		}
		if s.RunDuration > maxRun {
			maxRun = s.RunDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	return PerfStats{
		Runs:           p.sampleCount,
		AvgRunDuration: avg,
		MinRunDuration: minRun,
		MaxRunDuration: maxRun,
		PhaseAvg:       phaseAvg,
		PhasePct:       phasePct,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("runs", s.Runs),
		slog.Int64("avg_run_us", s.AvgRunDuration.Microseconds()),
		slog.Int64("min_run_us", s.MinRunDuration.Microseconds()),
		slog.Int64("max_run_us", s.MaxRunDuration.Microseconds()),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfSampleCSV is a flat struct for CSV export of one run's timings.
type PerfSampleCSV struct {
	Run      int   `csv:"run"`
	TotalUS  int64 `csv:"total_us"`
	SelectUS int64 `csv:"select_us"`
	PlanUS   int64 `csv:"plan_us"`
	IndexUS  int64 `csv:"index_us"`
	SearchUS int64 `csv:"search_us"`
	GrowUS   int64 `csv:"grow_us"`
}

// ToCSV converts a sample to a flat CSV-friendly struct.
func (s PerfSample) ToCSV(run int) PerfSampleCSV {
	return PerfSampleCSV{
		Run:      run,
		TotalUS:  s.RunDuration.Microseconds(),
		SelectUS: s.Phases[PhaseSelect].Microseconds(),
		PlanUS:   s.Phases[PhasePlan].Microseconds(),
		IndexUS:  s.Phases[PhaseIndex].Microseconds(),
		SearchUS: s.Phases[PhaseSearch].Microseconds(),
		GrowUS:   s.Phases[PhaseGrow].Microseconds(),
	}
}
