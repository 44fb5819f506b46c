// Package breeding produces the next generation from the survivors of a cull.
package breeding

import (
	"math/rand/v2"

	"github.com/pthm-cable/zorks/traits"
	"github.com/pthm-cable/zorks/zork"
)

// Pair holds two indices into the survivor list. A == B is a self-cross.
type Pair struct {
	A, B int
}

// Breeder restores a population to its configured size.
type Breeder struct {
	Space             *traits.Space
	Size              int     // Offspring per generation
	MutationRate      float64 // Per-trait probability in [0, 1]
	MutationMagnitude float64 // Fraction of the trait span
}

// Breed returns exactly Size offspring of the survivors, or none when there are no survivors.
// Offspring are unevaluated and numbered from 0.
func (b Breeder) Breed(survivors zork.Population, rng *rand.Rand) zork.Population {
	if len(survivors) == 0 || b.Size <= 0 {
		return zork.Population{}
	}

	generation := survivors[0].Generation + 1
	pairs := Pairs(len(survivors), rng)
	quotas := Quotas(len(pairs), b.Size, rng)

	defs := b.Space.Definitions()
	next := make(zork.Population, 0, b.Size)
	for i, pair := range pairs {
		pa, pb := survivors[pair.A], survivors[pair.B]
		for n := 0; n < quotas[i]; n++ {
			child := b.cross(defs, pa, pb, rng)
			child.ID = len(next)
			child.Generation = generation
			next = append(next, child)
		}
	}
	return next
}

// cross builds one child: per-trait inheritance from either parent, then mutation.
func (b Breeder) cross(defs []traits.Definition, pa, pb zork.Zork, rng *rand.Rand) zork.Zork {
	child := zork.Zork{
		Traits:  make(traits.Values, len(defs)),
		Parents: &zork.Parents{A: pa.ID, B: pb.ID},
	}

	for _, def := range defs {
		v := pa.Traits[def.Name]
		if rng.IntN(2) == 1 {
			v = pb.Traits[def.Name]
		}
		if b.MutationRate > 0 && rng.Float64() < b.MutationRate {
			v = traits.Mutate(v, def, b.MutationMagnitude, rng)
			child.Mutated = append(child.Mutated, def.Name)
		}
		child.Traits[def.Name] = v
	}
	return child
}

// Pairs forms mating pairs over n survivors.
//
// One survivor is paired with itself. Otherwise survivors are shuffled and
// consecutive ones paired; an odd one out is paired with a random other
// survivor, who may already have a mate.
func Pairs(n int, rng *rand.Rand) []Pair {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []Pair{{A: 0, B: 0}}
	}

	perm := rng.Perm(n)
	pairs := make([]Pair, 0, (n+1)/2)
	for i := 0; i+1 < n; i += 2 {
		pairs = append(pairs, Pair{A: perm[i], B: perm[i+1]})
	}
	if n%2 == 1 {
		last := perm[n-1]
		mate := rng.IntN(n - 1)
		if mate >= last {
			mate++
		}
		pairs = append(pairs, Pair{A: last, B: mate})
	}
	return pairs
}

// Quotas splits total offspring across pairs as evenly as possible.
// The remainder goes one each to distinct randomly chosen pairs.
func Quotas(pairs, total int, rng *rand.Rand) []int {
	if pairs <= 0 {
		return nil
	}
	q := make([]int, pairs)
	base, rem := total/pairs, total%pairs
	for i := range q {
		q[i] = base
	}
	if rem > 0 {
		for _, i := range rng.Perm(pairs)[:rem] {
			q[i]++
		}
	}
	return q
}
