package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pthm-cable/densehair/augment"
	"github.com/pthm-cable/densehair/config"
	"github.com/pthm-cable/densehair/meshio"
	"github.com/pthm-cable/densehair/telemetry"
)

// Options are the command-line inputs of one run.
type Options struct {
	SkullDir  string
	HairDir   string
	OutDir    string
	OutputDir string
	Strands   int // < 0 = use config
	Seed      uint64
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	skullDir := flag.String("skull", "", "Skull geometry directory (vertices.csv, indices.csv)")
	hairDir := flag.String("hair", "", "Captured hair directory")
	outDir := flag.String("out", "", "Directory for the augmented hair (empty = overwrite -hair)")
	strands := flag.Int("strands", -1, "Number of strands to add (-1 = use config)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV reports and config snapshot")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	slog.SetDefault(newLogger(cfg))

	if *hairDir == "" {
		slog.Error("missing -hair directory")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := Options{
		SkullDir:  *skullDir,
		HairDir:   *hairDir,
		OutDir:    *outDir,
		OutputDir: *outputDir,
		Strands:   *strands,
		Seed:      *seed,
	}
	if err := run(ctx, cfg, opts, slog.Default()); err != nil {
		slog.Error("augmentation failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.Derived.LogLevel}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, hopts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, hopts))
}

// run loads the inputs, augments the captured hair and writes the result
// and reports.
func run(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (err error) {
	if opts.Seed != 0 {
		cfg.Augment.Seed = opts.Seed
	}
	total := cfg.Augment.Strands
	if opts.Strands >= 0 {
		total = opts.Strands
	}
	outputDir := cfg.Telemetry.OutputDir
	if opts.OutputDir != "" {
		outputDir = opts.OutputDir
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = opts.HairDir
	}

	captured, hairErr := meshio.LoadStrands(opts.HairDir)

	skull, err := meshio.Load(opts.SkullDir)
	if err != nil {
		// A missing skull only means there is nowhere to grow.
		logger.Warn("skull not loaded, no strands will be grown", "dir", opts.SkullDir, "error", err)
		skull = nil
	}

	om, err := telemetry.NewOutputManager(outputDir, cfg.Telemetry.PerStrand)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := om.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	a := augment.New(cfg.Augment, augment.WithLogger(logger))
	// Record the seed actually used so the run can be reproduced.
	cfg.Augment.Seed = a.Seed()
	if err := om.WriteConfig(cfg); err != nil {
		return err
	}

	if hairErr != nil {
		// Unreadable hair grows nothing and leaves the output untouched.
		logger.Warn("hair not loaded, no strands will be grown", "dir", opts.HairDir, "error", hairErr)
		return om.WriteReport(telemetry.Report{
			Seed:      a.Seed(),
			Requested: total,
			Skipped:   augment.SkipNoHair,
		})
	}

	logger.Info("starting augmentation",
		"hair", opts.HairDir,
		"skull", opts.SkullDir,
		"captured_strands", captured.Count(),
		"strands", total,
		"seed", a.Seed(),
	)

	report, err := a.Augment(ctx, captured, skull, total)
	logger.Debug("phase timings", "perf", a.Perf().Stats())
	if werr := om.WriteReport(report); werr != nil {
		logger.Error("failed to write report", "error", werr)
	}
	if werr := om.WritePerf(a.LastSample(), report.Run); werr != nil {
		logger.Error("failed to write perf", "error", werr)
	}
	if err != nil {
		return err
	}
	if err := om.WriteStrands(a.StrandRows()); err != nil {
		logger.Error("failed to write strands", "error", err)
	}

	if err := meshio.Save(outDir, &captured.Geometry); err != nil {
		return err
	}
	logger.Info("wrote augmented hair", "dir", outDir, "vertices", captured.Geometry.Len(), "grown", report.Grown)
	return nil
}
