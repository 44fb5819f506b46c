package traits

import "math/rand/v2"

// Mutate returns a perturbed copy of value. It draws only from rng.
//
// Continuous values are redrawn uniformly from [value-m, value+m] where
// m = magnitude * span, then clipped to the domain. Discrete values are
// redrawn uniformly from the other options; a single-option domain is
// returned unchanged.
func Mutate(value float64, def Definition, magnitude float64, rng *rand.Rand) float64 {
	if def.Kind == Discrete {
		return mutateDiscrete(value, def, rng)
	}

	reach := magnitude * def.Span()
	if reach <= 0 {
		return def.Clip(value)
	}
	lo := value - reach
	return def.Clip(lo + rng.Float64()*2*reach)
}

func mutateDiscrete(value float64, def Definition, rng *rand.Rand) float64 {
	n := len(def.Options)
	if n <= 1 {
		return value
	}
	cur := def.optionIndex(value)
	if cur < 0 {
		return def.Options[rng.IntN(n)]
	}
	// Draw from n-1 slots and skip over the current option
	idx := rng.IntN(n - 1)
	if idx >= cur {
		idx++
	}
	return def.Options[idx]
}
