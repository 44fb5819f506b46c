// Package traits defines the heritable trait space zorks are built from.
package traits

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Kind is the shape of a trait's value domain.
type Kind uint8

const (
	Continuous Kind = iota // Real values in [Min, Max]
	Discrete               // One of a fixed set of options
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses a kind name. The empty string means continuous.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "continuous":
		return Continuous, nil
	case "discrete":
		return Discrete, nil
	}
	return 0, fmt.Errorf("unknown trait kind %q", s)
}

// Distribution is how fresh values are drawn.
type Distribution uint8

const (
	Uniform    Distribution = iota
	Normal                  // Continuous only; clipped to domain
	Triangular              // Continuous only; peaked at Mode
	Weighted                // Discrete only; Weights per option
)

func (d Distribution) String() string {
	switch d {
	case Uniform:
		return "uniform"
	case Normal:
		return "normal"
	case Triangular:
		return "triangular"
	case Weighted:
		return "weighted"
	default:
		return fmt.Sprintf("distribution(%d)", uint8(d))
	}
}

// ParseDistribution parses a distribution name. The empty string means uniform.
func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(s) {
	case "", "uniform":
		return Uniform, nil
	case "normal", "gaussian":
		return Normal, nil
	case "triangular", "triangle":
		return Triangular, nil
	case "weighted", "categorical":
		return Weighted, nil
	}
	return 0, fmt.Errorf("unknown distribution %q", s)
}

// Definition describes one trait: its domain and how it is sampled.
type Definition struct {
	Name string
	Unit string
	Kind Kind

	// Continuous domain
	Min, Max float64

	// Discrete domain
	Options []float64
	Labels  []string // Optional display names, one per option

	Distribution Distribution
	Mean         float64   // Normal
	StdDev       float64   // Normal
	Mode         float64   // Triangular
	Weights      []float64 // Weighted, one per option
}

// DomainError reports a malformed trait definition.
type DomainError struct {
	Trait  string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("trait %q: %s", e.Trait, e.Reason)
}

func domainErr(name, format string, args ...any) error {
	return &DomainError{Trait: name, Reason: fmt.Sprintf(format, args...)}
}

// Check reports whether the definition's domain and distribution are well formed.
func (d Definition) Check() error {
	if d.Name == "" {
		return domainErr(d.Name, "name is required")
	}

	switch d.Kind {
	case Continuous:
		if math.IsNaN(d.Min) || math.IsNaN(d.Max) || math.IsInf(d.Min, 0) || math.IsInf(d.Max, 0) {
			return domainErr(d.Name, "domain bounds must be finite")
		}
		if d.Min > d.Max {
			return domainErr(d.Name, "domain min %g exceeds max %g", d.Min, d.Max)
		}
		switch d.Distribution {
		case Uniform:
		case Normal:
			if !(d.StdDev > 0) {
				return domainErr(d.Name, "normal distribution needs stddev > 0")
			}
		case Triangular:
			if d.Mode < d.Min || d.Mode > d.Max {
				return domainErr(d.Name, "triangular mode %g outside [%g, %g]", d.Mode, d.Min, d.Max)
			}
		default:
			return domainErr(d.Name, "%s distribution is not available for continuous traits", d.Distribution)
		}

	case Discrete:
		if len(d.Options) == 0 {
			return domainErr(d.Name, "discrete domain is empty")
		}
		seen := make(map[float64]struct{}, len(d.Options))
		for _, o := range d.Options {
			if _, dup := seen[o]; dup {
				return domainErr(d.Name, "duplicate option %g", o)
			}
			seen[o] = struct{}{}
		}
		if len(d.Labels) != 0 && len(d.Labels) != len(d.Options) {
			return domainErr(d.Name, "%d labels for %d options", len(d.Labels), len(d.Options))
		}
		switch d.Distribution {
		case Uniform:
		case Weighted:
			if len(d.Weights) != len(d.Options) {
				return domainErr(d.Name, "%d weights for %d options", len(d.Weights), len(d.Options))
			}
			var sum float64
			for _, w := range d.Weights {
				if w < 0 {
					return domainErr(d.Name, "weights must be non-negative")
				}
				sum += w
			}
			if sum <= 0 {
				return domainErr(d.Name, "weights sum to zero")
			}
		default:
			return domainErr(d.Name, "%s distribution is not available for discrete traits", d.Distribution)
		}

	default:
		return domainErr(d.Name, "unknown kind %s", d.Kind)
	}

	return nil
}

// Span returns the width of a continuous domain, or the spread of discrete options.
func (d Definition) Span() float64 {
	if d.Kind == Discrete {
		if len(d.Options) == 0 {
			return 0
		}
		lo, hi := d.Options[0], d.Options[0]
		for _, o := range d.Options[1:] {
			lo = math.Min(lo, o)
			hi = math.Max(hi, o)
		}
		return hi - lo
	}
	return d.Max - d.Min
}

// Contains reports whether v lies in the domain.
func (d Definition) Contains(v float64) bool {
	if d.Kind == Discrete {
		return d.optionIndex(v) >= 0
	}
	return v >= d.Min && v <= d.Max
}

// Clip returns v limited to the domain. Discrete values snap to the nearest option.
func (d Definition) Clip(v float64) float64 {
	if d.Kind == Discrete {
		best := d.Options[0]
		for _, o := range d.Options[1:] {
			if math.Abs(o-v) < math.Abs(best-v) {
				best = o
			}
		}
		return best
	}
	if v < d.Min || math.IsNaN(v) {
		return d.Min
	}
	if v > d.Max {
		return d.Max
	}
	return v
}

// Label returns the display name of a value.
func (d Definition) Label(v float64) string {
	if i := d.optionIndex(v); i >= 0 && i < len(d.Labels) {
		return d.Labels[i]
	}
	return fmt.Sprintf("%g", v)
}

// LabelValue returns the option whose label is name.
func (d Definition) LabelValue(name string) (float64, bool) {
	for i, l := range d.Labels {
		if l == name {
			return d.Options[i], true
		}
	}
	return 0, false
}

func (d Definition) optionIndex(v float64) int {
	for i, o := range d.Options {
		if o == v {
			return i
		}
	}
	return -1
}

// Sample draws a fresh in-domain value.
func (d Definition) Sample(rng *rand.Rand) float64 {
	if d.Kind == Discrete {
		if d.Distribution == Weighted {
			idx := distuv.NewCategorical(d.Weights, rng).Rand()
			return d.Options[int(idx)]
		}
		return d.Options[rng.IntN(len(d.Options))]
	}

	if d.Min == d.Max {
		return d.Min
	}

	var v float64
	switch d.Distribution {
	case Normal:
		v = distuv.Normal{Mu: d.Mean, Sigma: d.StdDev, Src: rng}.Rand()
	case Triangular:
		v = distuv.NewTriangle(d.Min, d.Max, d.Mode, rng).Rand()
	default:
		v = distuv.Uniform{Min: d.Min, Max: d.Max, Src: rng}.Rand()
	}
	return d.Clip(v)
}

// Values maps trait names to values.
type Values map[string]float64

// Clone returns an independent copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Space is an ordered set of uniquely named trait definitions.
type Space struct {
	defs  []Definition
	index map[string]int
}

// NewSpace checks every definition and builds a space.
// All problems are reported, joined.
func NewSpace(defs ...Definition) (*Space, error) {
	s := &Space{
		defs:  make([]Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}

	var errs []error
	for _, d := range defs {
		if err := d.Check(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := s.index[d.Name]; dup {
			errs = append(errs, domainErr(d.Name, "duplicate trait name"))
			continue
		}
		d.Options = append([]float64(nil), d.Options...)
		d.Labels = append([]string(nil), d.Labels...)
		d.Weights = append([]float64(nil), d.Weights...)
		s.index[d.Name] = len(s.defs)
		s.defs = append(s.defs, d)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// MustSpace is like NewSpace but panics on error.
func MustSpace(defs ...Definition) *Space {
	s, err := NewSpace(defs...)
	if err != nil {
		panic(fmt.Sprintf("traits: %v", err))
	}
	return s
}

// Len returns the number of traits.
func (s *Space) Len() int {
	return len(s.defs)
}

// Definitions returns the trait definitions in order.
func (s *Space) Definitions() []Definition {
	return append([]Definition(nil), s.defs...)
}

// Definition returns the named definition.
func (s *Space) Definition(name string) (Definition, bool) {
	i, ok := s.index[name]
	if !ok {
		return Definition{}, false
	}
	return s.defs[i], true
}

// Names returns trait names in order.
func (s *Space) Names() []string {
	names := make([]string, len(s.defs))
	for i, d := range s.defs {
		names[i] = d.Name
	}
	return names
}

// Sample draws one value per trait, in definition order.
func (s *Space) Sample(rng *rand.Rand) Values {
	v := make(Values, len(s.defs))
	for _, d := range s.defs {
		v[d.Name] = d.Sample(rng)
	}
	return v
}

// Validate reports whether v has exactly one in-domain value per trait.
func (s *Space) Validate(v Values) bool {
	if len(v) != len(s.defs) {
		return false
	}
	for _, d := range s.defs {
		x, ok := v[d.Name]
		if !ok || !d.Contains(x) {
			return false
		}
	}
	return true
}
