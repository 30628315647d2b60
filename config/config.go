// Package config provides configuration loading and access for hair density
// augmentation.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all augmentation configuration parameters.
type Config struct {
	Augment   AugmentConfig   `yaml:"augment"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// AugmentConfig holds the density augmentation parameters.
type AugmentConfig struct {
	Strands        int     `yaml:"strands"`         // Requested number of new strands
	Neighbors      int     `yaml:"neighbors"`       // Captured strands blended per new strand
	ColorThreshold float64 `yaml:"color_threshold"` // Blue channel below this marks scalp
	BatchSize      int     `yaml:"batch_size"`      // Roots per neighbor-search worker
	Workers        int     `yaml:"workers"`         // Concurrent search batches (0 = one per batch)
	GrowthWorkers  int     `yaml:"growth_workers"`  // Concurrent strand growth (<= 1 = sequential)
	StrandLength   int     `yaml:"strand_length"`   // Vertices per new strand (0 = shortest captured strand)
	Index          string  `yaml:"index"`           // Root index: "kdtree" or "linear"
	Seed           uint64  `yaml:"seed"`            // RNG seed (0 = time-based)
}

// TelemetryConfig holds run report parameters.
type TelemetryConfig struct {
	OutputDir string `yaml:"output_dir"` // Directory for CSV reports (empty = disabled)
	PerStrand bool   `yaml:"per_strand"` // Also write one CSV row per grown strand
}

// LogConfig holds logging parameters.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ColorThreshold32 float32    // Augment.ColorThreshold as float32
	LogLevel         slog.Level // parsed Log.Level
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// Validate rejects settings no stage can run with.
func (c *Config) Validate() error {
	a := c.Augment
	switch {
	case a.Strands < 0:
		return fmt.Errorf("config: augment.strands must be >= 0, got %d", a.Strands)
	case a.Neighbors < 1:
		return fmt.Errorf("config: augment.neighbors must be >= 1, got %d", a.Neighbors)
	case a.BatchSize < 1:
		return fmt.Errorf("config: augment.batch_size must be >= 1, got %d", a.BatchSize)
	case a.Workers < 0 || a.GrowthWorkers < 0:
		return fmt.Errorf("config: worker counts must be >= 0")
	case a.StrandLength < 0:
		return fmt.Errorf("config: augment.strand_length must be >= 0, got %d", a.StrandLength)
	}
	switch a.Index {
	case "kdtree", "linear":
	default:
		return fmt.Errorf("config: unknown augment.index %q", a.Index)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ColorThreshold32 = float32(c.Augment.ColorThreshold)
	c.Derived.LogLevel, _ = parseLevel(c.Log.Level)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("config: unknown log.level %q", s)
	}
	return l, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
