// Package selection removes low scorers from a generation.
//
// Every policy reduces to a single bar: zorks scoring at or above it survive.
// Ties at the bar are therefore always kept together, and culling is a pure
// function of the scores.
package selection

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pthm-cable/zorks/config"
	"github.com/pthm-cable/zorks/zork"
)

// Policy decides the survival bar for a generation.
type Policy interface {
	Name() string
	// Bar returns the lowest surviving score given scores sorted high to low.
	// +Inf keeps nobody.
	Bar(sortedDesc []float64) float64
}

// Absolute keeps every zork scoring at least Cutoff.
type Absolute struct {
	Cutoff float64
}

func (p Absolute) Name() string { return "absolute" }

func (p Absolute) Bar([]float64) float64 { return p.Cutoff }

// TopK keeps the K best zorks, plus anyone tied with the K-th.
type TopK struct {
	K int
}

func (p TopK) Name() string { return "top_k" }

func (p TopK) Bar(sorted []float64) float64 {
	return rankBar(sorted, p.K)
}

// TopPercent keeps the best ceil(n*Percent/100) zorks, plus anyone tied with the last of them.
type TopPercent struct {
	Percent float64
}

func (p TopPercent) Name() string { return "top_percent" }

func (p TopPercent) Bar(sorted []float64) float64 {
	k := int(math.Ceil(float64(len(sorted))*p.Percent/100 - 1e-9))
	return rankBar(sorted, k)
}

func rankBar(sorted []float64, k int) float64 {
	if k <= 0 || len(sorted) == 0 {
		return math.Inf(1)
	}
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[k-1]
}

// ErrOutOfRange marks a policy parameter outside its allowed range.
var ErrOutOfRange = errors.New("out of range")

// FromConfig builds the configured policy.
// Bad top_k and top_percent values wrap ErrOutOfRange.
func FromConfig(c config.SelectionConfig) (Policy, error) {
	switch strings.ToLower(c.Policy) {
	case "", "absolute", "cutoff":
		if math.IsNaN(c.Cutoff) || math.IsInf(c.Cutoff, 0) {
			return nil, fmt.Errorf("cutoff must be finite, got %g", c.Cutoff)
		}
		return Absolute{Cutoff: c.Cutoff}, nil
	case "top_k", "topk":
		if c.TopK < 0 {
			return nil, fmt.Errorf("top_k must be >= 0, got %d: %w", c.TopK, ErrOutOfRange)
		}
		return TopK{K: c.TopK}, nil
	case "top_percent", "top_p", "percent":
		if c.TopPercent < 0 || c.TopPercent > 100 || math.IsNaN(c.TopPercent) {
			return nil, fmt.Errorf("top_percent must be in [0, 100], got %g: %w", c.TopPercent, ErrOutOfRange)
		}
		return TopPercent{Percent: c.TopPercent}, nil
	}
	return nil, fmt.Errorf("unknown selection policy %q", c.Policy)
}

// Survivors returns the indices of surviving scores, in input order, and the bar used.
func Survivors(scores []float64, p Policy) ([]int, float64) {
	if len(scores) == 0 {
		return []int{}, p.Bar(nil)
	}

	sorted := make([]float64, 0, len(scores))
	for _, s := range scores {
		if !math.IsNaN(s) {
			sorted = append(sorted, s)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	bar := p.Bar(sorted)

	keep := make([]int, 0, len(scores))
	for i, s := range scores {
		if s >= bar {
			keep = append(keep, i)
		}
	}
	return keep, bar
}

// Cull returns copies of the surviving zorks, judged on their fitness.
func Cull(pop zork.Population, p Policy) zork.Population {
	idx, _ := Survivors(pop.Fitnesses(), p)
	return pop.Pick(idx)
}
