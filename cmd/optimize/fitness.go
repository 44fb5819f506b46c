package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/zorks/batch"
	"github.com/pthm-cable/zorks/config"
	"github.com/pthm-cable/zorks/sim"
)

// invalidPenalty is returned for parameter vectors the validator rejects.
const invalidPenalty = 1e6

// Objective weights. Survival dominates; final fitness adds up to
// qualityWeight on top to separate configs that all survive.
const qualityWeight = 1.0

// Evaluation is the outcome of one parameter vector.
type Evaluation struct {
	Params         []float64 // Clamped raw values, in ParamVector order
	Objective      float64   // Lower is better
	Survival       float64   // Mean fraction of the generation limit reached
	Quality        float64   // Mean final fitness of surviving runs
	ExtinctionRate float64
	Report         batch.Report
}

// FitnessEvaluator runs seed batches and computes the objective.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []int64
	workers    int
	baseConfig *config.Config
	logger     *slog.Logger

	// Best run tracking
	mu   sync.Mutex
	best Evaluation
	last Evaluation
}

// NewFitnessEvaluator creates a new evaluator.
// baseCfg must have a positive generation limit; it is cloned per evaluation.
func NewFitnessEvaluator(params *ParamVector, seeds []int64, workers int, baseCfg *config.Config) *FitnessEvaluator {
	quiet := slog.New(slog.DiscardHandler)
	return &FitnessEvaluator{
		params:     params,
		seeds:      seeds,
		workers:    workers,
		baseConfig: baseCfg,
		logger:     quiet,
		best:       Evaluation{Objective: math.Inf(1)},
	}
}

// Best returns the best evaluation so far.
func (fe *FitnessEvaluator) Best() Evaluation {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.best
}

// Last returns the most recent evaluation.
func (fe *FitnessEvaluator) Last() Evaluation {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Evaluate computes the objective for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(ctx context.Context, x []float64) float64 {
	ev := fe.evaluate(ctx, x)
	ev.Params = fe.params.Clamp(x)

	fe.mu.Lock()
	fe.last = ev
	if ev.Objective < fe.best.Objective {
		fe.best = ev
	}
	fe.mu.Unlock()

	return ev.Objective
}

func (fe *FitnessEvaluator) evaluate(ctx context.Context, x []float64) Evaluation {
	raw := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(raw, x)

	cfg, err := sim.ValidateConfig(raw)
	if err != nil {
		return Evaluation{Objective: invalidPenalty, ExtinctionRate: 1}
	}

	rep, err := batch.Run(ctx, cfg, fe.seeds, fe.workers, sim.WithLogger(fe.logger))
	if err != nil {
		return Evaluation{Objective: invalidPenalty, ExtinctionRate: 1}
	}
	return score(rep, cfg.Generations)
}

// score turns a batch report into an objective.
// Formula: -(survival × (1 + qualityWeight × quality))
func score(rep batch.Report, limit int) Evaluation {
	ev := Evaluation{ExtinctionRate: rep.ExtinctionRate, Report: rep}
	if len(rep.Runs) == 0 || limit <= 0 {
		ev.Objective = invalidPenalty
		return ev
	}
	ev.Survival = clamp01(rep.MeanGenerations / float64(limit))
	ev.Quality = clamp01(rep.MeanFinalFitness)
	ev.Objective = -(ev.Survival * (1.0 + qualityWeight*ev.Quality))
	return ev
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
