// Package main sweeps batch size and worker counts over fixed inputs and
// seeds, reporting run times and whether every setting grows identical hair.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/densehair/config"
	"github.com/pthm-cable/densehair/meshio"
)

// formatDuration formats a duration as 1m02.500s, or 2.500s under a minute.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	m := d / time.Minute
	d -= m * time.Minute
	s := d.Seconds()

	if m > 0 {
		return fmt.Sprintf("%dm%06.3fs", m, s)
	}
	return fmt.Sprintf("%.3fs", s)
}

// writeBestConfig reloads the base config, applies s and writes it to out.
func writeBestConfig(base, out string, s Setting) error {
	cfg, err := config.Load(base)
	if err != nil {
		return err
	}
	s.Apply(&cfg.Augment)
	return cfg.WriteYAML(out)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	skullDir := flag.String("skull", "", "Skull geometry directory")
	hairDir := flag.String("hair", "", "Captured hair directory")
	strands := flag.Int("strands", -1, "Number of strands to add (-1 = use config)")
	seeds := flag.Int("seeds", 3, "Number of seeds per setting")
	batchSizes := flag.String("batch-sizes", "500,2000,8000", "Comma-separated search batch sizes")
	workers := flag.String("workers", "0,1,4", "Comma-separated search worker limits (0 = one per batch)")
	growthWorkers := flag.String("growth-workers", "1,4", "Comma-separated growth worker counts")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if *hairDir == "" || *skullDir == "" {
		log.Fatal("--hair and --skull are required")
	}
	if *seeds < 1 {
		log.Fatal("--seeds must be at least 1")
	}

	bs, err := parseInts(*batchSizes, 1)
	if err != nil {
		log.Fatalf("--batch-sizes: %v", err)
	}
	ws, err := parseInts(*workers, 0)
	if err != nil {
		log.Fatalf("--workers: %v", err)
	}
	gs, err := parseInts(*growthWorkers, 0)
	if err != nil {
		log.Fatalf("--growth-workers: %v", err)
	}

	// Create output directory
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Load base config
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()
	total := baseCfg.Augment.Strands
	if *strands >= 0 {
		total = *strands
	}

	captured, err := meshio.LoadStrands(*hairDir)
	if err != nil {
		log.Fatalf("failed to load hair: %v", err)
	}
	skull, err := meshio.Load(*skullDir)
	if err != nil {
		log.Fatalf("failed to load skull: %v", err)
	}

	// Generate seeds for evaluation
	evalSeeds := make([]uint64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint64(i*1000 + 42)
	}

	grid := Grid(bs, ws, gs)
	evaluator := NewEvaluator(baseCfg.Augment, captured, skull, total, evalSeeds)

	fmt.Printf("Sweeping %d settings, %d seeds each, %d strands per run\n", len(grid), *seeds, total)

	ctx := context.Background()
	var results []Result
	startTime := time.Now()
	for i, s := range grid {
		rs, err := evaluator.Evaluate(ctx, s)
		if err != nil {
			log.Fatalf("%v: %v", s, err)
		}
		results = append(results, rs...)

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(i+1)
		remaining := time.Duration(len(grid)-i-1) * avgPerEval
		fmt.Printf("Eval %d/%d: %v search=%dus grow=%dus | elapsed: %s, ETA: %s\n",
			i+1, len(grid), s, rs[0].SearchUS, rs[0].GrowUS,
			formatDuration(elapsed), formatDuration(remaining))
	}

	logPath := filepath.Join(*outputDir, "sweep_log.csv")
	f, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	if err := gocsv.MarshalFile(&results, f); err != nil {
		log.Fatalf("failed to write log file: %v", err)
	}
	f.Close()

	best, bestTime := evaluator.Best()
	fmt.Printf("\nSweep complete in %s\n", formatDuration(time.Since(startTime)))
	fmt.Printf("Fastest setting: %v (mean %s per run)\n", best, formatDuration(bestTime))

	// Save best config
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := writeBestConfig(*configPath, configOutPath, best); err != nil {
		log.Fatalf("failed to write best config: %v", err)
	}
	fmt.Printf("Best config saved to: %s\n", configOutPath)

	if n := Mismatches(results); n > 0 {
		log.Fatalf("%d runs grew different hair than the first setting for the same seed", n)
	}
}
