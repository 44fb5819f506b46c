package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/pthm-cable/zorks/config"
	"github.com/pthm-cable/zorks/fitness"
	"github.com/pthm-cable/zorks/selection"
	"github.com/pthm-cable/zorks/traits"
)

// SimulationConfig is the validated, immutable configuration of a run.
// Build it with ValidateConfig; the zero value is not usable.
type SimulationConfig struct {
	Seed              int64
	PopulationSize    int
	Generations       int // 0 = until extinction
	MutationRate      float64
	MutationMagnitude float64
	Policy            selection.Policy
	Caprice           float64

	Space   *traits.Space
	Fitness *fitness.Evaluator

	Workers           int
	ParallelThreshold int

	RetainGenerations   int // 0 disables the lineage ledger
	HallOfFameSize      int
	HistoryWindow       int
	BreakthroughFactor  float64
	ConvergenceFraction float64

	source *config.Config
}

// Source returns a copy of the raw configuration this was validated from.
func (c SimulationConfig) Source() *config.Config {
	if c.source == nil {
		return nil
	}
	return c.source.Clone()
}

// validator accumulates every problem rather than stopping at the first.
type validator struct {
	errs []error
}

func (v *validator) add(e *ConfigurationError) {
	v.errs = append(v.errs, e)
}

func (v *validator) rangeF(field string, x, lo, hi float64, what string) {
	if math.IsNaN(x) || x < lo || x > hi {
		v.add(configErr(field, ProblemOutOfRange, "%s must be in [%g, %g], got %g", what, lo, hi, x))
	}
}

func (v *validator) nonNegative(field string, x int, what string) {
	if x < 0 {
		v.add(configErr(field, ProblemOutOfRange, "%s must be >= 0, got %d", what, x))
	}
}

// ValidateConfig checks raw and builds the run configuration.
// Every problem found is reported; the error unwraps to *ConfigurationError values (see Problems).
func ValidateConfig(raw *config.Config) (SimulationConfig, error) {
	if raw == nil {
		return SimulationConfig{}, configErr("config", ProblemMissing, "configuration is required")
	}

	v := &validator{}

	v.nonNegative("population.size", raw.Population.Size, "population size")
	v.nonNegative("population.generations", raw.Population.Generations, "generation count")
	v.rangeF("mutation.rate", raw.Mutation.Rate, 0, 1, "mutation rate")
	v.rangeF("mutation.magnitude", raw.Mutation.Magnitude, 0, 1, "mutation magnitude")
	v.rangeF("selection.caprice", raw.Selection.Caprice, 0, 1, "caprice")

	policy, err := selection.FromConfig(raw.Selection)
	switch {
	case errors.Is(err, selection.ErrOutOfRange):
		v.add(configErr(policyParamField(raw.Selection.Policy), ProblemOutOfRange, "%v", err))
	case err != nil:
		v.add(configErr("selection", ProblemInvalid, "%v", err))
	default:
		if abs, ok := policy.(selection.Absolute); ok {
			v.rangeF("selection.cutoff", abs.Cutoff, 0, 1, "survival cutoff")
		}
	}

	v.nonNegative("parallel.workers", raw.Parallel.Workers, "worker count")
	v.nonNegative("parallel.threshold", raw.Parallel.Threshold, "parallel threshold")
	v.nonNegative("lineage.retain_generations", raw.Lineage.RetainGenerations, "retained generations")
	v.nonNegative("telemetry.hall_of_fame_size", raw.Telemetry.HallOfFameSize, "hall of fame size")
	v.nonNegative("telemetry.history_window", raw.Telemetry.HistoryWindow, "history window")
	if raw.Telemetry.Milestones.BreakthroughFactor < 0 {
		v.add(configErr("telemetry.milestones.breakthrough_factor", ProblemOutOfRange, "breakthrough factor must be >= 0"))
	}
	v.rangeF("telemetry.milestones.convergence_fraction", raw.Telemetry.Milestones.ConvergenceFraction, 0, 1, "convergence fraction")

	space, evaluator := v.traits(raw)

	if len(v.errs) > 0 {
		return SimulationConfig{}, errors.Join(v.errs...)
	}

	return SimulationConfig{
		Seed:                raw.Seed,
		PopulationSize:      raw.Population.Size,
		Generations:         raw.Population.Generations,
		MutationRate:        raw.Mutation.Rate,
		MutationMagnitude:   raw.Mutation.Magnitude,
		Policy:              policy,
		Caprice:             raw.Selection.Caprice,
		Space:               space,
		Fitness:             evaluator,
		Workers:             raw.Parallel.Workers,
		ParallelThreshold:   raw.Parallel.Threshold,
		RetainGenerations:   raw.Lineage.RetainGenerations,
		HallOfFameSize:      raw.Telemetry.HallOfFameSize,
		HistoryWindow:       raw.Telemetry.HistoryWindow,
		BreakthroughFactor:  raw.Telemetry.Milestones.BreakthroughFactor,
		ConvergenceFraction: raw.Telemetry.Milestones.ConvergenceFraction,
		source:              raw.Clone(),
	}, nil
}

// traits validates trait definitions, overrides and fitness curves.
func (v *validator) traits(raw *config.Config) (*traits.Space, *fitness.Evaluator) {
	if len(raw.Traits) == 0 {
		v.add(configErr("traits", ProblemMissing, "at least one trait is required"))
		return nil, nil
	}

	names := make([]string, 0, len(raw.Traits))
	for _, tc := range raw.Traits {
		names = append(names, tc.Name)
	}

	overrideNames := make([]string, 0, len(raw.TraitOverrides))
	for name := range raw.TraitOverrides {
		overrideNames = append(overrideNames, name)
	}
	sort.Strings(overrideNames)
	for _, name := range overrideNames {
		if raw.Trait(name) == nil {
			e := configErr("trait_overrides."+name, ProblemUnknown, "no trait named %q", name)
			e.Suggestion = suggest(name, names)
			v.add(e)
		}
	}

	before := len(v.errs)
	seen := make(map[string]bool, len(raw.Traits))
	defs := make([]traits.Definition, 0, len(raw.Traits))
	terms := make([]fitness.Term, 0, len(raw.Traits))

	for i, tc := range raw.Traits {
		field := fmt.Sprintf("traits[%d]", i)
		if tc.Name != "" {
			field = "traits." + tc.Name
		}
		if seen[tc.Name] && tc.Name != "" {
			v.add(configErr(field, ProblemDomain, "duplicate trait name %q", tc.Name))
			continue
		}
		seen[tc.Name] = true

		if ov, ok := raw.TraitOverrides[tc.Name]; ok {
			tc = applyOverride(tc, ov)
		}

		def, ok := v.definition(field, tc)
		if !ok {
			continue
		}
		defs = append(defs, def)

		curve, err := fitness.NewCurve(def, tc.Fitness)
		if err != nil {
			v.add(configErr(field+".fitness", ProblemInvalid, "%v", err))
			continue
		}
		if math.IsNaN(tc.Fitness.Weight) || tc.Fitness.Weight < 0 {
			v.add(configErr(field+".fitness.weight", ProblemOutOfRange, "weight must be >= 0, got %g", tc.Fitness.Weight))
			continue
		}
		terms = append(terms, fitness.Term{Trait: def.Name, Weight: tc.Fitness.Weight, Curve: curve})
	}

	if len(v.errs) > before {
		return nil, nil
	}

	space, err := traits.NewSpace(defs...)
	if err != nil {
		v.add(configErr("traits", ProblemDomain, "%v", err))
		return nil, nil
	}
	evaluator, err := fitness.NewEvaluator(terms...)
	if err != nil {
		v.add(configErr("traits.fitness", ProblemInvalid, "%v", err))
		return nil, nil
	}
	return space, evaluator
}

func (v *validator) definition(field string, tc config.TraitConfig) (traits.Definition, bool) {
	kind, err := traits.ParseKind(tc.Kind)
	if err != nil {
		v.add(configErr(field+".kind", ProblemInvalid, "%v", err))
		return traits.Definition{}, false
	}
	dist, err := traits.ParseDistribution(tc.Distribution)
	if err != nil {
		v.add(configErr(field+".distribution", ProblemInvalid, "%v", err))
		return traits.Definition{}, false
	}

	def := traits.Definition{
		Name:         tc.Name,
		Unit:         tc.Unit,
		Kind:         kind,
		Min:          tc.Min,
		Max:          tc.Max,
		Options:      tc.Options,
		Labels:       tc.Labels,
		Distribution: dist,
		Mean:         tc.Mean,
		StdDev:       tc.StdDev,
		Mode:         tc.Mode,
		Weights:      tc.Weights,
	}
	if err := def.Check(); err != nil {
		var de *traits.DomainError
		msg := err.Error()
		if errors.As(err, &de) {
			msg = de.Reason
		}
		v.add(configErr(field, ProblemDomain, "%s", msg))
		return traits.Definition{}, false
	}
	return def, true
}

// policyParamField names the parameter a rank policy is sized by.
func policyParamField(policy string) string {
	switch strings.ToLower(policy) {
	case "top_k", "topk":
		return "selection.top_k"
	}
	return "selection.top_percent"
}

func applyOverride(tc config.TraitConfig, ov config.TraitOverride) config.TraitConfig {
	if ov.Min != nil {
		tc.Min = *ov.Min
	}
	if ov.Max != nil {
		tc.Max = *ov.Max
	}
	if ov.Options != nil {
		tc.Options = ov.Options
	}
	if ov.Labels != nil {
		tc.Labels = ov.Labels
	}
	if ov.Weights != nil {
		tc.Weights = ov.Weights
	}
	if ov.Distribution != nil {
		tc.Distribution = *ov.Distribution
	}
	if ov.Mean != nil {
		tc.Mean = *ov.Mean
	}
	if ov.StdDev != nil {
		tc.StdDev = *ov.StdDev
	}
	if ov.Mode != nil {
		tc.Mode = *ov.Mode
	}
	if ov.Weight != nil {
		tc.Fitness.Weight = *ov.Weight
	}
	return tc
}

// suggest returns the candidate closest to name, or "" when none is close enough.
func suggest(name string, candidates []string) string {
	limit := levenshteinLimit(name)
	best, bestDist := "", limit+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func levenshteinLimit(s string) int {
	switch n := len(s); {
	case n <= 4:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}
