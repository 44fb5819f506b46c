// Package lineage keeps a bounded family-tree ledger of recent generations.
//
// Zorks reference their parents by id only. The ledger stores one ECS entity
// per recorded zork and resolves those ids on demand, so old generations can
// be dropped without leaving dangling links.
package lineage

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/zorks/traits"
	"github.com/pthm-cable/zorks/zork"
)

// ErrNotRecorded is returned when a zork is not (or no longer) in the ledger.
var ErrNotRecorded = errors.New("zork not recorded")

// Record identifies a zork and its fate.
type Record struct {
	Generation int
	ID         int
	Fitness    float64
	Survived   bool
}

// Parentage references the parents by id in the previous generation.
type Parentage struct {
	Founder bool
	A, B    int
}

// Genome holds the zork's trait values.
type Genome struct {
	Values traits.Values
}

type key struct {
	generation, id int
}

// Ledger is an ECS-backed window over the most recent generations.
type Ledger struct {
	world  *ecs.World
	mapper *ecs.Map3[Record, Parentage, Genome]
	filter *ecs.Filter1[Record]
	index  map[key]ecs.Entity

	retain int
	oldest int
	newest int
	empty  bool
}

// NewLedger creates a ledger keeping the last retain generations. retain must be > 0.
func NewLedger(retain int) *Ledger {
	if retain < 1 {
		retain = 1
	}
	world := ecs.NewWorld()
	return &Ledger{
		world:  world,
		mapper: ecs.NewMap3[Record, Parentage, Genome](world),
		filter: ecs.NewFilter1[Record](world),
		index:  make(map[key]ecs.Entity),
		retain: retain,
		empty:  true,
	}
}

// Record stores an evaluated generation. survived lists, by position, who cleared the cull.
// Generations older than the retention window are pruned afterwards.
func (l *Ledger) Record(pop zork.Population, survived []bool) {
	if len(pop) == 0 {
		return
	}
	gen := pop.Generation()

	for i := range pop {
		z := &pop[i]
		k := key{generation: gen, id: z.ID}
		if e, ok := l.index[k]; ok && l.world.Alive(e) {
			l.world.RemoveEntity(e)
		}

		rec := Record{Generation: gen, ID: z.ID, Fitness: z.Fitness, Survived: i < len(survived) && survived[i]}
		par := Parentage{Founder: true}
		if z.Parents != nil {
			par = Parentage{A: z.Parents.A, B: z.Parents.B}
		}
		genome := Genome{Values: z.Traits.Clone()}

		l.index[k] = l.mapper.NewEntity(&rec, &par, &genome)
	}

	if l.empty || gen > l.newest {
		l.newest = gen
	}
	if l.empty || gen < l.oldest {
		l.oldest = gen
	}
	l.empty = false

	l.Prune()
}

// Prune removes generations that fell out of the retention window.
// Returns the number of zorks removed.
func (l *Ledger) Prune() int {
	if l.empty {
		return 0
	}
	cutoff := l.newest - l.retain + 1

	// First pass: collect stale entities (must complete before modifying)
	var stale []ecs.Entity
	query := l.filter.Query()
	for query.Next() {
		rec := query.Get()
		if rec.Generation < cutoff {
			stale = append(stale, query.Entity())
			delete(l.index, key{generation: rec.Generation, id: rec.ID})
		}
	}

	// Second pass: remove entities (query iteration complete)
	for _, e := range stale {
		l.world.RemoveEntity(e)
	}

	if l.oldest < cutoff {
		l.oldest = cutoff
	}
	return len(stale)
}

// Len returns the number of zorks in the ledger.
func (l *Ledger) Len() int {
	return len(l.index)
}

// Window returns the oldest and newest recorded generations. ok is false when empty.
func (l *Ledger) Window() (oldest, newest int, ok bool) {
	if l.empty {
		return 0, 0, false
	}
	return l.oldest, l.newest, true
}

// Entry is a resolved ledger record.
type Entry struct {
	Record
	Parentage
	Traits traits.Values
}

// Lookup returns a copy of one recorded zork.
func (l *Ledger) Lookup(generation, id int) (Entry, bool) {
	e, ok := l.index[key{generation: generation, id: id}]
	if !ok || !l.world.Alive(e) {
		return Entry{}, false
	}
	rec, par, genome := l.mapper.Get(e)
	return Entry{Record: *rec, Parentage: *par, Traits: genome.Values.Clone()}, true
}

// Family is a node of a resolved family tree.
type Family struct {
	Entry
	Parents []*Family // One entry for a self-cross, none for founders
	Pruned  bool      // Parents exist but are outside the ledger window
}

// Ancestry resolves a zork's family tree up to depth generations back.
// Depth 0 returns the zork alone.
func (l *Ledger) Ancestry(generation, id, depth int) (*Family, error) {
	entry, ok := l.Lookup(generation, id)
	if !ok {
		return nil, fmt.Errorf("generation %d id %d: %w", generation, id, ErrNotRecorded)
	}
	return l.resolve(entry, depth), nil
}

func (l *Ledger) resolve(entry Entry, depth int) *Family {
	f := &Family{Entry: entry}
	if depth <= 0 || entry.Founder {
		return f
	}

	ids := []int{entry.A}
	if entry.B != entry.A {
		ids = append(ids, entry.B)
	}
	for _, pid := range ids {
		parent, ok := l.Lookup(entry.Generation-1, pid)
		if !ok {
			f.Pruned = true
			continue
		}
		f.Parents = append(f.Parents, l.resolve(parent, depth-1))
	}
	return f
}

// Ancestors returns how many distinct ancestors the tree holds, excluding the root.
func (f *Family) Ancestors() int {
	seen := make(map[key]bool)
	var walk func(*Family)
	walk = func(n *Family) {
		for _, p := range n.Parents {
			seen[key{generation: p.Generation, id: p.ID}] = true
			walk(p)
		}
	}
	walk(f)
	return len(seen)
}
