// Package batch runs many seeds of one configuration and aggregates the outcomes.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/zorks/sim"
)

// RunResult is the outcome of one seed.
type RunResult struct {
	RunID       string  `csv:"run_id"`
	Seed        int64   `csv:"seed"`
	State       string  `csv:"state"`
	Generations int     `csv:"generations"` // Summaries recorded
	FinalMean   float64 `csv:"final_fitness_mean"`
	FinalMax    float64 `csv:"final_fitness_max"`
	BestEver    float64 `csv:"best_fitness"`
	Milestones  int     `csv:"milestones"`

	history sim.RunHistory `csv:"-"`
}

// History returns the run's summaries.
func (r RunResult) History() sim.RunHistory {
	return r.history.Clone()
}

// Extinct reports whether the run died out.
func (r RunResult) Extinct() bool {
	return r.State == sim.Extinct.String()
}

// Report aggregates a batch.
type Report struct {
	Runs             []RunResult // In seed order
	ExtinctionRate   float64
	MeanGenerations  float64   // Mean number of generations recorded per run
	MeanFinalFitness float64   // Over runs that did not go extinct; 0 if all did
	MeanFitnessByGen []float64 // Per generation, over runs that reached it
	RunsReachingGen  []int
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("runs", len(r.Runs)),
		slog.Float64("extinction_rate", r.ExtinctionRate),
		slog.Float64("mean_generations", r.MeanGenerations),
		slog.Float64("mean_final_fitness", r.MeanFinalFitness),
	)
}

// Run executes one run per seed with at most workers runs at a time.
// workers <= 0 uses GOMAXPROCS. Each run gets a copy of cfg with its seed.
// On cancellation the report is discarded and ctx's error returned.
func Run(ctx context.Context, cfg sim.SimulationConfig, seeds []int64, workers int, opts ...sim.Option) (Report, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]RunResult, len(seeds))
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(workers)
	for i, seed := range seeds {
		p.Go(func(ctx context.Context) error {
			runCfg := cfg
			runCfg.Seed = seed
			// Scoring inside a batch stays serial; the batch is the parallel unit.
			runCfg.Workers = 1

			r, err := sim.Start(runCfg, opts...)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			history, err := r.RunToCompletion(ctx)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = result(r, seed, history)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return Report{}, err
	}

	return Aggregate(results), nil
}

func result(r *sim.Run, seed int64, history sim.RunHistory) RunResult {
	res := RunResult{
		RunID:       r.ID(),
		Seed:        seed,
		State:       r.State().String(),
		Generations: len(history),
		BestEver:    r.HallOfFame().TopFitness(),
		Milestones:  len(r.Milestones()),
		history:     history,
	}
	if last, ok := history.Last(); ok {
		res.FinalMean = last.MeanFitness
		res.FinalMax = last.MaxFitness
	}
	return res
}

// Aggregate summarizes a set of run results.
func Aggregate(runs []RunResult) Report {
	rep := Report{Runs: runs}
	if len(runs) == 0 {
		return rep
	}

	gens := make([]float64, len(runs))
	var finals []float64
	extinct := 0
	longest := 0
	for i, r := range runs {
		gens[i] = float64(r.Generations)
		if r.Extinct() {
			extinct++
		} else {
			finals = append(finals, r.FinalMean)
		}
		longest = max(longest, len(r.history))
	}
	rep.ExtinctionRate = float64(extinct) / float64(len(runs))
	rep.MeanGenerations = stat.Mean(gens, nil)
	if len(finals) > 0 {
		rep.MeanFinalFitness = stat.Mean(finals, nil)
	}

	rep.MeanFitnessByGen = make([]float64, longest)
	rep.RunsReachingGen = make([]int, longest)
	for g := 0; g < longest; g++ {
		var at []float64
		for _, r := range runs {
			if g < len(r.history) && r.history[g].Population > 0 {
				at = append(at, r.history[g].MeanFitness)
			}
		}
		rep.RunsReachingGen[g] = len(at)
		if len(at) > 0 {
			rep.MeanFitnessByGen[g] = stat.Mean(at, nil)
		}
	}
	return rep
}

// Seeds returns n consecutive seeds starting at base.
func Seeds(base int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = base + int64(i)
	}
	return out
}
