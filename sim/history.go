package sim

import (
	"github.com/pthm-cable/zorks/telemetry"
	"github.com/pthm-cable/zorks/zork"
)

// RunHistory is the ordered list of generation summaries of a run.
type RunHistory []telemetry.GenerationSummary

// Clone returns a copy sharing no memory with h.
func (h RunHistory) Clone() RunHistory {
	out := make(RunHistory, len(h))
	for i, s := range h {
		out[i] = s.Clone()
	}
	return out
}

// Last returns the most recent summary.
func (h RunHistory) Last() (telemetry.GenerationSummary, bool) {
	if len(h) == 0 {
		return telemetry.GenerationSummary{}, false
	}
	return h[len(h)-1].Clone(), true
}

// MeanFitness returns the mean fitness series.
func (h RunHistory) MeanFitness() []float64 {
	out := make([]float64, len(h))
	for i, s := range h {
		out[i] = s.MeanFitness
	}
	return out
}

// TraitMeans returns one trait's mean series. Missing entries are 0.
func (h RunHistory) TraitMeans(name string) []float64 {
	out := make([]float64, len(h))
	for i, s := range h {
		if t, ok := s.Trait(name); ok {
			out[i] = t.Mean
		}
	}
	return out
}

// Snapshot is a read-only view of a run for rendering.
type Snapshot struct {
	RunID      string
	State      State
	Generation int
	Population zork.Population
	History    RunHistory
	HallOfFame []zork.Zork
	Milestones []telemetry.Milestone
}
