package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/densehair/config"
)

// OutputManager handles run report output with CSV logging.
type OutputManager struct {
	dir         string
	reportFile  *os.File
	perfFile    *os.File
	strandsFile *os.File

	// Track if headers have been written
	reportHeaderWritten  bool
	perfHeaderWritten    bool
	strandsHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled). strands.csv is only created
// when perStrand is set.
func NewOutputManager(dir string, perStrand bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "report.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating report.csv: %w", err)
	}
	om.reportFile = f

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.reportFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	if perStrand {
		f, err = os.Create(filepath.Join(dir, "strands.csv"))
		if err != nil {
			om.reportFile.Close()
			om.perfFile.Close()
			return nil, fmt.Errorf("creating strands.csv: %w", err)
		}
		om.strandsFile = f
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteReport writes a run report record to report.csv.
func (om *OutputManager) WriteReport(r Report) error {
	if om == nil {
		return nil
	}
	if err := writeRecords(om.reportFile, []Report{r}, &om.reportHeaderWritten); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// WritePerf writes one run's phase timings to perf.csv.
func (om *OutputManager) WritePerf(s PerfSample, run int) error {
	if om == nil {
		return nil
	}
	if err := writeRecords(om.perfFile, []PerfSampleCSV{s.ToCSV(run)}, &om.perfHeaderWritten); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteStrands writes per-strand rows to strands.csv. It is a no-op when
// per-strand output is disabled.
func (om *OutputManager) WriteStrands(rows []StrandRow) error {
	if om == nil || om.strandsFile == nil || len(rows) == 0 {
		return nil
	}
	if err := writeRecords(om.strandsFile, rows, &om.strandsHeaderWritten); err != nil {
		return fmt.Errorf("writing strands: %w", err)
	}
	return nil
}

// writeRecords marshals records, including the header only on first write.
func writeRecords[T any](f *os.File, records []T, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.reportFile, om.perfFile, om.strandsFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
