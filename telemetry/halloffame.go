package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pthm-cable/zorks/zork"
)

// HallOfFame keeps the fittest zorks ever evaluated in a run, best first.
type HallOfFame struct {
	entries []zork.Zork
	maxSize int
}

// NewHallOfFame creates a hall with the given capacity. A capacity of 0 disables it.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 0 {
		maxSize = 0
	}
	return &HallOfFame{
		entries: make([]zork.Zork, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers an evaluated zork for entry.
// Returns true if it was added. Earlier entries win ties.
func (hof *HallOfFame) Consider(z zork.Zork) bool {
	if hof == nil || hof.maxSize == 0 || !z.Evaluated {
		return false
	}

	// Find insertion point (sorted descending by fitness)
	idx := sort.Search(len(hof.entries), func(i int) bool {
		return hof.entries[i].Fitness < z.Fitness
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hof.entries) >= hof.maxSize && idx >= hof.maxSize {
		return false
	}

	hof.entries = append(hof.entries, zork.Zork{})
	copy(hof.entries[idx+1:], hof.entries[idx:])
	hof.entries[idx] = z.Clone()

	// Trim if over capacity
	if len(hof.entries) > hof.maxSize {
		hof.entries = hof.entries[:hof.maxSize]
	}
	return true
}

// ConsiderAll offers every member of a generation. Returns the number admitted.
func (hof *HallOfFame) ConsiderAll(pop zork.Population) int {
	n := 0
	for i := range pop {
		if hof.Consider(pop[i]) {
			n++
		}
	}
	return n
}

// Entries returns copies of the entries, best first.
func (hof *HallOfFame) Entries() []zork.Zork {
	if hof == nil {
		return nil
	}
	out := make([]zork.Zork, len(hof.entries))
	for i, z := range hof.entries {
		out[i] = z.Clone()
	}
	return out
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	if hof == nil {
		return 0
	}
	return len(hof.entries)
}

// TopFitness returns the best fitness seen, or 0 if the hall is empty.
func (hof *HallOfFame) TopFitness() float64 {
	if hof.Size() == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

// MarshalJSON serializes the hall as a ranked list.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(hof.Entries(), "", "  ")
}

// LoadHallOfFameFromFile reads a hall written by OutputManager.WriteHallOfFame.
func LoadHallOfFameFromFile(path string) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var entries []zork.Zork
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	hof := NewHallOfFame(len(entries))
	for _, z := range entries {
		hof.Consider(z)
	}
	return hof, nil
}
