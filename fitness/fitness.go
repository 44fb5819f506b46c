// Package fitness scores zorks from their traits.
//
// A score is the weighted mean of per-trait contributions, so it always
// lies in [0, 1] and cutoffs are comparable across trait configurations.
package fitness

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/zorks/traits"
)

// Term is one trait's weighted contribution.
type Term struct {
	Trait  string
	Weight float64
	Curve  Curve
}

// Evaluator is a pure function from trait values to a score.
// It holds no state that changes after construction.
type Evaluator struct {
	terms []Term
	total float64
}

// NewEvaluator checks weights and builds an evaluator.
// Weights must be finite and non-negative with a positive sum.
func NewEvaluator(terms ...Term) (*Evaluator, error) {
	e := &Evaluator{terms: append([]Term(nil), terms...)}

	var errs []error
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		switch {
		case t.Curve == nil:
			errs = append(errs, fmt.Errorf("trait %q: missing curve", t.Trait))
		case t.Weight < 0 || math.IsNaN(t.Weight) || math.IsInf(t.Weight, 0):
			errs = append(errs, fmt.Errorf("trait %q: weight must be a finite value >= 0, got %g", t.Trait, t.Weight))
		case seen[t.Trait]:
			errs = append(errs, fmt.Errorf("trait %q: scored twice", t.Trait))
		default:
			e.total += t.Weight
		}
		seen[t.Trait] = true
	}
	if len(errs) == 0 && e.total <= 0 {
		errs = append(errs, errors.New("fitness weights sum to zero"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return e, nil
}

// Terms returns the weighted terms in order.
func (e *Evaluator) Terms() []Term {
	return append([]Term(nil), e.terms...)
}

// Score returns the weighted mean contribution. Missing traits contribute 0.
func (e *Evaluator) Score(v traits.Values) float64 {
	var sum float64
	for _, t := range e.terms {
		if t.Weight == 0 {
			continue
		}
		sum += t.Weight * t.Curve.Contribution(v[t.Trait])
	}
	return clamp01(sum / e.total)
}

// Breakdown returns each trait's unweighted contribution.
func (e *Evaluator) Breakdown(v traits.Values) map[string]float64 {
	out := make(map[string]float64, len(e.terms))
	for _, t := range e.terms {
		out[t.Trait] = t.Curve.Contribution(v[t.Trait])
	}
	return out
}
