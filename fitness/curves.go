package fitness

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pthm-cable/zorks/config"
	"github.com/pthm-cable/zorks/traits"
)

// Curve maps a trait value to a contribution in [0, 1].
type Curve interface {
	Contribution(v float64) float64
	Name() string
}

// Monotonic rises or falls linearly across the trait domain.
// From is the contribution at Min, To at Max.
type Monotonic struct {
	Min, Max float64
	From, To float64
}

func (c Monotonic) Name() string { return "monotonic" }

func (c Monotonic) Contribution(v float64) float64 {
	span := c.Max - c.Min
	if span <= 0 {
		return clamp01(c.From)
	}
	t := clamp01((v - c.Min) / span)
	return clamp01(c.From + (c.To-c.From)*t)
}

// Optimal peaks at Target and falls off quadratically, reaching 0 at Tolerance away.
type Optimal struct {
	Target    float64
	Tolerance float64
}

func (c Optimal) Name() string { return "optimal" }

func (c Optimal) Contribution(v float64) float64 {
	d := (v - c.Target) / c.Tolerance
	return clamp01(1 - d*d)
}

// Threshold is flat at Below until Cutoff, then rises linearly from AtCutoff to 1 at Max.
type Threshold struct {
	Cutoff   float64
	Max      float64
	Below    float64
	AtCutoff float64
}

func (c Threshold) Name() string { return "threshold" }

func (c Threshold) Contribution(v float64) float64 {
	if v < c.Cutoff {
		return clamp01(c.Below)
	}
	span := c.Max - c.Cutoff
	if span <= 0 {
		return clamp01(c.AtCutoff)
	}
	t := clamp01((v - c.Cutoff) / span)
	return clamp01(c.AtCutoff + (1-c.AtCutoff)*t)
}

// Table assigns a fixed contribution per discrete option. Unlisted options score 0.
type Table struct {
	Scores map[float64]float64
}

func (c Table) Name() string { return "table" }

func (c Table) Contribution(v float64) float64 {
	return clamp01(c.Scores[v])
}

// Neutral ignores the trait value.
type Neutral struct {
	Value float64
}

func (c Neutral) Name() string { return "neutral" }

func (c Neutral) Contribution(float64) float64 {
	return clamp01(c.Value)
}

// NewCurve builds the configured curve for a trait.
func NewCurve(def traits.Definition, fc config.FitnessConfig) (Curve, error) {
	switch strings.ToLower(fc.Curve) {
	case "monotonic", "linear":
		if err := check01("from", fc.From); err != nil {
			return nil, err
		}
		if err := check01("to", fc.To); err != nil {
			return nil, err
		}
		lo, hi := def.Min, def.Max
		if def.Kind == traits.Discrete {
			lo, hi = bounds(def.Options)
		}
		return Monotonic{Min: lo, Max: hi, From: fc.From, To: fc.To}, nil

	case "optimal", "peaked":
		if !(fc.Tolerance > 0) {
			return nil, fmt.Errorf("optimal curve needs tolerance > 0, got %g", fc.Tolerance)
		}
		return Optimal{Target: fc.Target, Tolerance: fc.Tolerance}, nil

	case "threshold":
		if def.Kind != traits.Continuous {
			return nil, fmt.Errorf("threshold curve needs a continuous trait")
		}
		if fc.Cutoff < def.Min || fc.Cutoff > def.Max {
			return nil, fmt.Errorf("threshold cutoff %g outside [%g, %g]", fc.Cutoff, def.Min, def.Max)
		}
		if err := check01("below", fc.Below); err != nil {
			return nil, err
		}
		if err := check01("at_cutoff", fc.AtCutoff); err != nil {
			return nil, err
		}
		return Threshold{Cutoff: fc.Cutoff, Max: def.Max, Below: fc.Below, AtCutoff: fc.AtCutoff}, nil

	case "table":
		if def.Kind != traits.Discrete {
			return nil, fmt.Errorf("table curve needs a discrete trait")
		}
		scores := make(map[float64]float64, len(fc.Scores))
		keys := make([]string, 0, len(fc.Scores))
		for k := range fc.Scores {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			opt, ok := def.LabelValue(k)
			if !ok {
				f, err := strconv.ParseFloat(k, 64)
				if err != nil || !def.Contains(f) {
					return nil, fmt.Errorf("table entry %q is not an option", k)
				}
				opt = f
			}
			if err := check01("score "+k, fc.Scores[k]); err != nil {
				return nil, err
			}
			scores[opt] = fc.Scores[k]
		}
		return Table{Scores: scores}, nil

	case "", "neutral":
		return Neutral{Value: 0.5}, nil
	}
	return nil, fmt.Errorf("unknown fitness curve %q", fc.Curve)
}

func check01(field string, v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("%s must be in [0, 1], got %g", field, v)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func bounds(vs []float64) (lo, hi float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
