package zork

// Population is one generation of zorks, in birth order.
type Population []Zork

// Clone returns a deep copy.
func (p Population) Clone() Population {
	if p == nil {
		return Population{}
	}
	out := make(Population, len(p))
	for i, z := range p {
		out[i] = z.Clone()
	}
	return out
}

// Generation returns the shared generation number, or -1 when empty.
func (p Population) Generation() int {
	if len(p) == 0 {
		return -1
	}
	return p[0].Generation
}

// Fitnesses returns every member's fitness in population order.
func (p Population) Fitnesses() []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[i] = p[i].Fitness
	}
	return out
}

// TraitValues returns one trait's values in population order.
func (p Population) TraitValues(name string) []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[i] = p[i].Traits[name]
	}
	return out
}

// ByID finds a member by id.
func (p Population) ByID(id int) (Zork, bool) {
	for _, z := range p {
		if z.ID == id {
			return z, true
		}
	}
	return Zork{}, false
}

// Pick returns copies of the members at the given indices, in index order.
func (p Population) Pick(indices []int) Population {
	out := make(Population, 0, len(indices))
	for _, i := range indices {
		out = append(out, p[i].Clone())
	}
	return out
}

// Evaluated reports whether every member has a fitness.
func (p Population) Evaluated() bool {
	for i := range p {
		if !p[i].Evaluated {
			return false
		}
	}
	return true
}
