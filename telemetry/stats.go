package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/zorks/zork"
)

// TraitStat summarizes one trait across a generation.
type TraitStat struct {
	Name   string  `csv:"trait"`
	Mean   float64 `csv:"mean"`
	StdDev float64 `csv:"stddev"` // Sample standard deviation; 0 below two zorks
	Min    float64 `csv:"min"`
	Max    float64 `csv:"max"`
}

// GenerationSummary is one RunHistory entry, recorded after evaluation.
type GenerationSummary struct {
	Generation int    `csv:"generation"`
	State      string `csv:"state"` // Run state after this generation's step

	// Counts
	Population int `csv:"population"`
	Survivors  int `csv:"survivors"`
	Culled     int `csv:"culled"`
	Mutations  int `csv:"mutations"` // Traits mutated at birth across the generation

	// Fitness distribution
	MeanFitness   float64 `csv:"fitness_mean"`
	StdFitness    float64 `csv:"fitness_std"`
	MinFitness    float64 `csv:"fitness_min"`
	MedianFitness float64 `csv:"fitness_p50"`
	MaxFitness    float64 `csv:"fitness_max"`

	// Selection
	Cutoff    float64 `csv:"cutoff"`     // Bar scores were judged against; 0 when a rank policy keeps nobody
	SelfCross bool    `csv:"self_cross"` // Sole survivor bred with itself

	Traits []TraitStat `csv:"-"`
}

// Summarize computes population statistics for an evaluated generation.
// Selection fields are left for the caller. Trait stats follow names order.
func Summarize(generation int, pop zork.Population, names []string) GenerationSummary {
	s := GenerationSummary{
		Generation: generation,
		Population: len(pop),
		Traits:     make([]TraitStat, 0, len(names)),
	}
	for i := range pop {
		s.Mutations += len(pop[i].Mutated)
	}

	fit := pop.Fitnesses()
	s.MeanFitness, s.StdFitness = meanStd(fit)
	if len(fit) > 0 {
		s.MinFitness = floats.Min(fit)
		s.MaxFitness = floats.Max(fit)
		sorted := append([]float64(nil), fit...)
		sort.Float64s(sorted)
		s.MedianFitness = Percentile(sorted, 0.5)
	}

	for _, name := range names {
		vals := pop.TraitValues(name)
		ts := TraitStat{Name: name}
		ts.Mean, ts.StdDev = meanStd(vals)
		if len(vals) > 0 {
			ts.Min = floats.Min(vals)
			ts.Max = floats.Max(vals)
		}
		s.Traits = append(s.Traits, ts)
	}

	return s
}

func meanStd(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	mean, std = stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// Trait returns the named trait's stats.
func (s GenerationSummary) Trait(name string) (TraitStat, bool) {
	for _, t := range s.Traits {
		if t.Name == name {
			return t, true
		}
	}
	return TraitStat{}, false
}

// Clone returns a copy that shares no slices.
func (s GenerationSummary) Clone() GenerationSummary {
	s.Traits = append([]TraitStat(nil), s.Traits...)
	return s
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationSummary) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("generation", s.Generation),
		slog.String("state", s.State),
		slog.Int("population", s.Population),
		slog.Int("survivors", s.Survivors),
		slog.Int("culled", s.Culled),
		slog.Int("mutations", s.Mutations),
		slog.Float64("fitness_mean", s.MeanFitness),
		slog.Float64("fitness_std", s.StdFitness),
		slog.Float64("fitness_min", s.MinFitness),
		slog.Float64("fitness_p50", s.MedianFitness),
		slog.Float64("fitness_max", s.MaxFitness),
		slog.Float64("cutoff", s.Cutoff),
		slog.Bool("self_cross", s.SelfCross),
	}
	for _, t := range s.Traits {
		attrs = append(attrs, slog.Group(t.Name,
			slog.Float64("mean", t.Mean),
			slog.Float64("std", t.StdDev),
		))
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the summary using the given logger.
func (s GenerationSummary) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	args := []any{
		"generation", s.Generation,
		"state", s.State,
		"population", s.Population,
		"survivors", s.Survivors,
		"culled", s.Culled,
		"fitness_mean", s.MeanFitness,
		"fitness_min", s.MinFitness,
		"fitness_max", s.MaxFitness,
		"cutoff", s.Cutoff,
	}
	for _, t := range s.Traits {
		args = append(args, t.Name+"_mean", t.Mean, t.Name+"_std", t.StdDev)
	}
	logger.Info("generation", args...)
}
