// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters as entered by the user.
// It is not validated; sim.ValidateConfig turns it into an immutable run config.
type Config struct {
	Seed           int64                    `yaml:"seed"`
	Population     PopulationConfig         `yaml:"population"`
	Mutation       MutationConfig           `yaml:"mutation"`
	Selection      SelectionConfig          `yaml:"selection"`
	Traits         []TraitConfig            `yaml:"traits"`
	TraitOverrides map[string]TraitOverride `yaml:"trait_overrides,omitempty"`
	Parallel       ParallelConfig           `yaml:"parallel"`
	Lineage        LineageConfig            `yaml:"lineage"`
	Telemetry      TelemetryConfig          `yaml:"telemetry"`
}

// PopulationConfig holds population sizing parameters.
type PopulationConfig struct {
	Size        int `yaml:"size"`        // Zorks per generation, restored after every breed
	Generations int `yaml:"generations"` // 0 = run until extinction
}

// MutationConfig holds mutation parameters.
type MutationConfig struct {
	Rate      float64 `yaml:"rate"`      // Per-trait mutation probability
	Magnitude float64 `yaml:"magnitude"` // Neighborhood half-width as a fraction of the trait span
}

// SelectionConfig holds culling parameters.
type SelectionConfig struct {
	Policy     string  `yaml:"policy"` // absolute | top_k | top_percent
	Cutoff     float64 `yaml:"cutoff"`
	TopK       int     `yaml:"top_k"`
	TopPercent float64 `yaml:"top_percent"`
	Caprice    float64 `yaml:"caprice"` // Per-zork luck drawn from U(-caprice, caprice); 0 disables
}

// TraitConfig defines one heritable trait.
type TraitConfig struct {
	Name         string        `yaml:"name"`
	Unit         string        `yaml:"unit,omitempty"`
	Kind         string        `yaml:"kind"` // continuous | discrete
	Min          float64       `yaml:"min,omitempty"`
	Max          float64       `yaml:"max,omitempty"`
	Options      []float64     `yaml:"options,omitempty"`
	Labels       []string      `yaml:"labels,omitempty"`
	Distribution string        `yaml:"distribution"` // uniform | normal | triangular | weighted
	Mean         float64       `yaml:"mean,omitempty"`
	StdDev       float64       `yaml:"stddev,omitempty"`
	Mode         float64       `yaml:"mode,omitempty"`
	Weights      []float64     `yaml:"weights,omitempty"`
	Fitness      FitnessConfig `yaml:"fitness"`
}

// FitnessConfig describes how a trait contributes to survivability.
type FitnessConfig struct {
	Curve     string             `yaml:"curve"` // monotonic | optimal | threshold | table | neutral
	Weight    float64            `yaml:"weight"`
	From      float64            `yaml:"from,omitempty"`      // monotonic: contribution at domain min
	To        float64            `yaml:"to,omitempty"`        // monotonic: contribution at domain max
	Target    float64            `yaml:"target,omitempty"`    // optimal: peak value
	Tolerance float64            `yaml:"tolerance,omitempty"` // optimal: distance at which contribution hits 0
	Cutoff    float64            `yaml:"cutoff,omitempty"`    // threshold: value where the gain starts
	Below     float64            `yaml:"below,omitempty"`     // threshold: contribution below cutoff
	AtCutoff  float64            `yaml:"at_cutoff,omitempty"` // threshold: contribution at cutoff, rising to 1 at max
	Scores    map[string]float64 `yaml:"scores,omitempty"`    // table: option label -> contribution
}

// TraitOverride replaces selected fields of a named trait definition.
// Nil fields keep the base definition.
type TraitOverride struct {
	Min          *float64  `yaml:"min,omitempty"`
	Max          *float64  `yaml:"max,omitempty"`
	Options      []float64 `yaml:"options,omitempty"`
	Labels       []string  `yaml:"labels,omitempty"`  // Replaces labels; set alongside a new options list
	Weights      []float64 `yaml:"weights,omitempty"` // Replaces weights
	Distribution *string   `yaml:"distribution,omitempty"`
	Mean         *float64  `yaml:"mean,omitempty"`
	StdDev       *float64  `yaml:"stddev,omitempty"`
	Mode         *float64  `yaml:"mode,omitempty"`
	Weight       *float64  `yaml:"weight,omitempty"`
}

// ParallelConfig holds fitness evaluation parallelism parameters.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
	Threshold int `yaml:"threshold"` // Minimum population size to score in parallel
}

// LineageConfig holds family-tree retention parameters.
type LineageConfig struct {
	RetainGenerations int `yaml:"retain_generations"` // 0 disables the ledger
}

// TelemetryConfig holds summary and milestone parameters.
type TelemetryConfig struct {
	HallOfFameSize int              `yaml:"hall_of_fame_size"`
	HistoryWindow  int              `yaml:"history_window"`
	Milestones     MilestonesConfig `yaml:"milestones"`
}

// MilestonesConfig holds milestone detection thresholds.
type MilestonesConfig struct {
	BreakthroughFactor  float64 `yaml:"breakthrough_factor"`  // Mean fitness > rolling mean * factor
	ConvergenceFraction float64 `yaml:"convergence_fraction"` // Std-dev < span * fraction for every trait
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

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
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
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Merge(cfg, data); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Merge unmarshals YAML data over cfg. Only fields present in data are overwritten,
// except traits, which replaces the whole trait list when present.
func Merge(cfg *Config, data []byte) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("config: marshaling for clone: %v", err))
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("config: unmarshaling clone: %v", err))
	}
	return out
}

// Trait returns the named trait definition, or nil.
func (c *Config) Trait(name string) *TraitConfig {
	for i := range c.Traits {
		if c.Traits[i].Name == name {
			return &c.Traits[i]
		}
	}
	return nil
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
