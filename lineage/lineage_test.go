package lineage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/zorks/lineage"
	"github.com/pthm-cable/zorks/traits"
	"github.com/pthm-cable/zorks/zork"
)

// generation builds n zorks; parents maps child id to parent ids.
func generation(gen, n int, parents map[int][2]int) zork.Population {
	pop := make(zork.Population, n)
	for i := range pop {
		pop[i] = zork.New(i, gen, traits.Values{"leg_length": float64(gen*10 + i)})
		pop[i].SetFitness(float64(i) / float64(n))
		if p, ok := parents[i]; ok {
			pop[i].Parents = &zork.Parents{A: p[0], B: p[1]}
		}
	}
	return pop
}

func allSurvive(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func TestLedger_RecordAndLookup(t *testing.T) {
	l := lineage.NewLedger(3)
	l.Record(generation(0, 4, nil), []bool{false, true, true, false})

	assert.Equal(t, 4, l.Len())

	e, ok := l.Lookup(0, 2)
	require.True(t, ok)
	assert.Equal(t, 0.5, e.Fitness)
	assert.True(t, e.Survived)
	assert.True(t, e.Founder)
	assert.Equal(t, 2.0, e.Traits["leg_length"])

	e, ok = l.Lookup(0, 3)
	require.True(t, ok)
	assert.False(t, e.Survived)

	_, ok = l.Lookup(1, 0)
	assert.False(t, ok)
}

func TestLedger_Ancestry(t *testing.T) {
	l := lineage.NewLedger(5)
	l.Record(generation(0, 4, nil), allSurvive(4))
	l.Record(generation(1, 2, map[int][2]int{0: {1, 2}, 1: {3, 3}}), allSurvive(2))
	l.Record(generation(2, 1, map[int][2]int{0: {0, 1}}), allSurvive(1))

	tree, err := l.Ancestry(2, 0, 2)
	require.NoError(t, err)
	require.Len(t, tree.Parents, 2)
	assert.False(t, tree.Pruned)

	// Parent 0 of generation 1 came from 1 and 2; parent 1 was a self-cross of 3
	p0, p1 := tree.Parents[0], tree.Parents[1]
	assert.Equal(t, 0, p0.ID)
	require.Len(t, p0.Parents, 2)
	assert.Equal(t, []int{1, 2}, []int{p0.Parents[0].ID, p0.Parents[1].ID})
	require.Len(t, p1.Parents, 1)
	assert.Equal(t, 3, p1.Parents[0].ID)
	assert.True(t, p1.Parents[0].Founder)

	assert.Equal(t, 5, tree.Ancestors())

	shallow, err := l.Ancestry(2, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, shallow.Ancestors())
	assert.Empty(t, shallow.Parents[0].Parents)

	_, err = l.Ancestry(7, 0, 1)
	assert.ErrorIs(t, err, lineage.ErrNotRecorded)
}

func TestLedger_PrunesOldGenerations(t *testing.T) {
	l := lineage.NewLedger(2)
	l.Record(generation(0, 3, nil), allSurvive(3))
	l.Record(generation(1, 3, map[int][2]int{0: {0, 1}, 1: {1, 2}, 2: {2, 0}}), allSurvive(3))
	l.Record(generation(2, 3, map[int][2]int{0: {0, 1}, 1: {1, 2}, 2: {2, 0}}), allSurvive(3))

	assert.Equal(t, 6, l.Len())
	oldest, newest, ok := l.Window()
	require.True(t, ok)
	assert.Equal(t, 1, oldest)
	assert.Equal(t, 2, newest)

	_, found := l.Lookup(0, 0)
	assert.False(t, found, "generation 0 should have been pruned")

	// Generation 1's parents are gone: the tree stops and says so
	tree, err := l.Ancestry(2, 0, 3)
	require.NoError(t, err)
	require.Len(t, tree.Parents, 2)
	assert.True(t, tree.Parents[0].Pruned)
	assert.Empty(t, tree.Parents[0].Parents)
}

func TestLedger_EmptyGeneration(t *testing.T) {
	l := lineage.NewLedger(2)
	l.Record(zork.Population{}, nil)

	assert.Equal(t, 0, l.Len())
	_, _, ok := l.Window()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Prune())
}
