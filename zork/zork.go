// Package zork defines the simulated creature and its per-generation population.
package zork

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/pthm-cable/zorks/traits"
)

// Parents references the two parents of a zork by id within the previous generation.
// A == B marks a self-cross.
type Parents struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Zork is one creature: a trait vector plus the fitness it was judged on.
type Zork struct {
	ID         int           `json:"id"`         // Unique within its generation only
	Generation int           `json:"generation"` // 0 for founders
	Traits     traits.Values `json:"traits"`
	Fitness    float64       `json:"fitness"`
	Evaluated  bool          `json:"evaluated"`         // Fitness is meaningless until set
	Parents    *Parents      `json:"parents,omitempty"` // nil for generation 0
	Mutated    []string      `json:"mutated,omitempty"` // Traits perturbed after crossover
}

// New creates an unevaluated founder.
func New(id, generation int, v traits.Values) Zork {
	return Zork{ID: id, Generation: generation, Traits: v}
}

// Clone returns a deep copy.
func (z Zork) Clone() Zork {
	out := z
	out.Traits = z.Traits.Clone()
	if z.Parents != nil {
		p := *z.Parents
		out.Parents = &p
	}
	if z.Mutated != nil {
		out.Mutated = append([]string(nil), z.Mutated...)
	}
	return out
}

// SetFitness records an evaluated score.
func (z *Zork) SetFitness(f float64) {
	z.Fitness = f
	z.Evaluated = true
}

// ClearFitness marks the zork unevaluated.
func (z *Zork) ClearFitness() {
	z.Fitness = 0
	z.Evaluated = false
}

// SelfCrossed reports whether both parents are the same zork.
func (z Zork) SelfCrossed() bool {
	return z.Parents != nil && z.Parents.A == z.Parents.B
}

// WasMutated reports whether the named trait was perturbed at birth.
func (z Zork) WasMutated(name string) bool {
	for _, m := range z.Mutated {
		if m == name {
			return true
		}
	}
	return false
}

// Key returns a label unique across a run.
func (z Zork) Key() string {
	return fmt.Sprintf("g%d#%d", z.Generation, z.ID)
}

// LogValue implements slog.LogValuer.
func (z Zork) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("id", z.ID),
		slog.Int("generation", z.Generation),
	}
	if z.Evaluated {
		attrs = append(attrs, slog.Float64("fitness", z.Fitness))
	}
	if z.Parents != nil {
		attrs = append(attrs, slog.Int("parent_a", z.Parents.A), slog.Int("parent_b", z.Parents.B))
	}

	names := make([]string, 0, len(z.Traits))
	for name := range z.Traits {
		names = append(names, name)
	}
	sort.Strings(names)
	traitAttrs := make([]any, 0, len(names))
	for _, name := range names {
		traitAttrs = append(traitAttrs, slog.Float64(name, z.Traits[name]))
	}
	attrs = append(attrs, slog.Group("traits", traitAttrs...))

	return slog.GroupValue(attrs...)
}
