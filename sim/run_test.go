package sim

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/zorks/config"
	"github.com/pthm-cable/zorks/telemetry"
)

// testConfig is the default zork with 20 per generation, 5 generations, top 50% survive.
func testConfig(t *testing.T, edit func(c *config.Config)) SimulationConfig {
	t.Helper()
	raw := config.Default()
	raw.Seed = 42
	raw.Population.Size = 20
	raw.Population.Generations = 5
	raw.Mutation.Rate = 0.1
	raw.Selection.Policy = "top_percent"
	raw.Selection.TopPercent = 50
	raw.Selection.Caprice = 0
	if edit != nil {
		edit(raw)
	}
	cfg, err := ValidateConfig(raw)
	require.NoError(t, err)
	return cfg
}

func TestRun_FirstGeneration(t *testing.T) {
	r, err := Start(testConfig(t, nil))
	require.NoError(t, err)
	assert.Equal(t, Running, r.State())

	founders := r.Population()
	require.Len(t, founders, 20)
	for _, z := range founders {
		assert.Equal(t, 0, z.Generation)
		assert.Nil(t, z.Parents)
		assert.True(t, r.Config().Space.Validate(z.Traits))
	}

	s, err := r.Step()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Generation)
	assert.Equal(t, 20, s.Population)
	assert.Equal(t, 10, s.Survivors)
	assert.Equal(t, 10, s.Culled)
	assert.Equal(t, "RUNNING", s.State)
	assert.Greater(t, s.Cutoff, 0.0)
	assert.GreaterOrEqual(t, s.MaxFitness, s.Cutoff)

	next := r.Population()
	require.Len(t, next, 20)
	for i, z := range next {
		assert.Equal(t, i, z.ID)
		assert.Equal(t, 1, z.Generation)
		require.NotNil(t, z.Parents)
		_, ok := founders.ByID(z.Parents.A)
		assert.True(t, ok)
		_, ok = founders.ByID(z.Parents.B)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, r.Generation())
}

func TestRun_CompletesAfterGenerationLimit(t *testing.T) {
	var seen []int
	r, err := Start(testConfig(t, nil), WithObserver(func(s telemetry.GenerationSummary, _ []telemetry.Milestone) {
		seen = append(seen, s.Generation)
	}))
	require.NoError(t, err)

	history, err := r.RunToCompletion(context.Background())
	require.NoError(t, err)

	require.Len(t, history, 5)
	assert.Equal(t, Complete, r.State())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
	for i, s := range history {
		assert.Equal(t, i, s.Generation)
		assert.Equal(t, 20, s.Population)
	}
	last, ok := history.Last()
	require.True(t, ok)
	assert.Equal(t, "COMPLETE", last.State)

	assert.Equal(t, 10, r.HallOfFame().Size())
	assert.GreaterOrEqual(t, r.HallOfFame().TopFitness(), last.MaxFitness)
}

func TestRun_SameSeedSameHistory(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) { c.Selection.Caprice = 0.1 })

	run := func() RunHistory {
		r, err := Start(cfg)
		require.NoError(t, err)
		h, err := r.RunToCompletion(context.Background())
		require.NoError(t, err)
		return h
	}

	assert.Equal(t, run(), run())
}

func TestRun_DifferentSeedsDiffer(t *testing.T) {
	a, err := Start(testConfig(t, nil))
	require.NoError(t, err)
	b, err := Start(testConfig(t, func(c *config.Config) { c.Seed = 7 }))
	require.NoError(t, err)

	assert.NotEqual(t, a.Population()[0].Traits, b.Population()[0].Traits)
}

func TestRun_EmptyPopulationIsExtinct(t *testing.T) {
	r, err := Start(testConfig(t, func(c *config.Config) { c.Population.Size = 0 }))
	require.NoError(t, err)

	assert.Equal(t, Extinct, r.State())
	h := r.History()
	require.Len(t, h, 1)
	assert.Equal(t, 0, h[0].Population)
	assert.Equal(t, 0, h[0].Survivors)
	assert.Equal(t, "EXTINCT", h[0].State)
}

func TestRun_ExtinctionIsStable(t *testing.T) {
	// No zork can reach a perfect score, so nobody survives generation 0.
	cfg := testConfig(t, func(c *config.Config) {
		c.Selection.Policy = "absolute"
		c.Selection.Cutoff = 1.0
	})
	r, err := Start(cfg)
	require.NoError(t, err)

	s, err := r.Step()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Survivors)
	assert.Equal(t, 20, s.Culled)
	assert.Equal(t, Extinct, r.State())
	assert.Empty(t, r.Population())

	again, err := r.Step()
	require.NoError(t, err)
	assert.Equal(t, s, again)
	assert.Len(t, r.History(), 1)

	var types []telemetry.MilestoneType
	for _, m := range r.Milestones() {
		types = append(types, m.Type)
	}
	assert.Contains(t, types, telemetry.MilestoneExtinction)
}

func TestRun_StrictRejectsFinishedRun(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) { c.Population.Size = 0 })
	r, err := Start(cfg, WithStrict(true))
	require.NoError(t, err)

	_, err = r.Step()
	var se *StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, Extinct, se.State)
}

func TestRun_StepBeforeStart(t *testing.T) {
	r := New(testConfig(t, nil))
	assert.Equal(t, Ready, r.State())

	_, err := r.Step()
	var se *StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "step", se.Op)

	_, err = r.RunToCompletion(context.Background())
	require.ErrorAs(t, err, &se)

	require.NoError(t, r.Start())
	require.ErrorAs(t, r.Start(), &se)
}

func TestRun_SingleSurvivorSelfCrosses(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Selection.Policy = "top_k"
		c.Selection.TopK = 1
		c.Mutation.Rate = 0
	})
	r, err := Start(cfg)
	require.NoError(t, err)

	s, err := r.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Survivors)
	assert.True(t, s.SelfCross)

	children := r.Population()
	require.Len(t, children, 20)
	parent := children[0].Parents.A
	for _, z := range children {
		assert.True(t, z.SelfCrossed())
		assert.Equal(t, parent, z.Parents.A)
		assert.Empty(t, z.Mutated)
		assert.Equal(t, children[0].Traits, z.Traits)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	r, err := Start(testConfig(t, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := r.RunToCompletion(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, h)
	assert.Equal(t, Running, r.State())
}

func TestRun_Ancestry(t *testing.T) {
	r, err := Start(testConfig(t, nil))
	require.NoError(t, err)
	_, err = r.RunToCompletion(context.Background())
	require.NoError(t, err)

	tree, err := r.Ancestry(4, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, tree.Generation)
	assert.NotEmpty(t, tree.Parents)

	off := testConfig(t, func(c *config.Config) { c.Lineage.RetainGenerations = 0 })
	r2, err := Start(off)
	require.NoError(t, err)
	_, err = r2.Ancestry(0, 0, 1)
	assert.ErrorIs(t, err, ErrLineageDisabled)
}

func TestRun_Snapshot(t *testing.T) {
	r, err := Start(testConfig(t, nil), WithPerf(telemetry.NewPerfCollector(10)))
	require.NoError(t, err)
	_, err = r.Step()
	require.NoError(t, err)

	snap := r.Snapshot()
	assert.Equal(t, r.ID(), snap.RunID)
	assert.Equal(t, 1, snap.Generation)
	assert.Len(t, snap.Population, 20)
	assert.Len(t, snap.History, 1)

	// Mutating the snapshot leaves the run untouched.
	snap.Population[0].Traits["leg_length"] = -1
	assert.NotEqual(t, -1.0, r.Population()[0].Traits["leg_length"])
}

func TestRun_DefaultConfigKeepsFitnessTopHalf(t *testing.T) {
	raw := config.Default()
	raw.Seed = 42
	raw.Population.Size = 20
	raw.Selection.Policy = "top_percent"
	raw.Selection.TopPercent = 50
	cfg, err := ValidateConfig(raw)
	require.NoError(t, err)

	r, err := Start(cfg)
	require.NoError(t, err)
	founders := r.Population()

	scores := make(map[int]float64, len(founders))
	ranked := make([]float64, 0, len(founders))
	for _, z := range founders {
		scores[z.ID] = cfg.Fitness.Score(z.Traits)
		ranked = append(ranked, scores[z.ID])
	}
	slices.Sort(ranked)
	bar := ranked[len(ranked)/2]

	s, err := r.Step()
	require.NoError(t, err)
	assert.Equal(t, 10, s.Survivors)
	assert.InDelta(t, bar, s.Cutoff, 1e-12)

	for _, z := range r.Population() {
		require.NotNil(t, z.Parents)
		assert.GreaterOrEqual(t, scores[z.Parents.A], bar, "parent %d is below the top half", z.Parents.A)
		assert.GreaterOrEqual(t, scores[z.Parents.B], bar, "parent %d is below the top half", z.Parents.B)
	}
}
