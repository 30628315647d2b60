package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pthm-cable/densehair/config"
)

// Setting is one point of the sweep grid.
type Setting struct {
	BatchSize     int
	Workers       int
	GrowthWorkers int
}

// Apply writes the setting into an augment config.
func (s Setting) Apply(cfg *config.AugmentConfig) {
	cfg.BatchSize = s.BatchSize
	cfg.Workers = s.Workers
	cfg.GrowthWorkers = s.GrowthWorkers
}

func (s Setting) String() string {
	return fmt.Sprintf("batch=%d workers=%d growth_workers=%d", s.BatchSize, s.Workers, s.GrowthWorkers)
}

// Grid returns every combination of the given values, batch size varying
// slowest.
func Grid(batchSizes, workers, growthWorkers []int) []Setting {
	out := make([]Setting, 0, len(batchSizes)*len(workers)*len(growthWorkers))
	for _, b := range batchSizes {
		for _, w := range workers {
			for _, g := range growthWorkers {
				out = append(out, Setting{BatchSize: b, Workers: w, GrowthWorkers: g})
			}
		}
	}
	return out
}

// parseInts parses a comma-separated list of integers no smaller than lo.
func parseInts(s string, lo int) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", s, err)
		}
		if v < lo {
			return nil, fmt.Errorf("value %d in %q is below %d", v, s, lo)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list %q", s)
	}
	return out, nil
}
