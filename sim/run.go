// Package sim runs the generational loop: evaluate, cull, breed, repeat.
package sim

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/pthm-cable/zorks/breeding"
	"github.com/pthm-cable/zorks/lineage"
	"github.com/pthm-cable/zorks/selection"
	"github.com/pthm-cable/zorks/telemetry"
	"github.com/pthm-cable/zorks/traits"
	"github.com/pthm-cable/zorks/zork"
)

// Observer is called after every recorded generation.
type Observer func(s telemetry.GenerationSummary, milestones []telemetry.Milestone)

// Option configures a Run.
type Option func(*Run)

// WithLogger sets the run's logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Run) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStrict makes stepping a finished run an error instead of a no-op.
func WithStrict(strict bool) Option {
	return func(r *Run) { r.strict = strict }
}

// WithPerf times each step's phases.
func WithPerf(p *telemetry.PerfCollector) Option {
	return func(r *Run) { r.perf = p }
}

// WithObserver registers a callback for each recorded generation.
func WithObserver(fn Observer) Option {
	return func(r *Run) {
		if fn != nil {
			r.observers = append(r.observers, fn)
		}
	}
}

// Run is one simulation. It is not safe for concurrent use.
type Run struct {
	id     uuid.UUID
	cfg    SimulationConfig
	rng    *rand.Rand
	logger *slog.Logger
	strict bool
	perf   *telemetry.PerfCollector

	breeder    breeding.Breeder
	traitNames []string

	state      State
	generation int
	population zork.Population
	history    RunHistory

	ledger     *lineage.Ledger
	hallOfFame *telemetry.HallOfFame
	detector   *telemetry.MilestoneDetector
	milestones []telemetry.Milestone
	observers  []Observer
}

// New creates a run in the READY state.
func New(cfg SimulationConfig, opts ...Option) *Run {
	r := &Run{
		id:     uuid.New(),
		cfg:    cfg,
		rng:    seededRNG(cfg.Seed),
		logger: slog.Default(),
		breeder: breeding.Breeder{
			Space:             cfg.Space,
			Size:              cfg.PopulationSize,
			MutationRate:      cfg.MutationRate,
			MutationMagnitude: cfg.MutationMagnitude,
		},
		hallOfFame: telemetry.NewHallOfFame(cfg.HallOfFameSize),
		detector: telemetry.NewMilestoneDetector(
			cfg.HistoryWindow,
			cfg.BreakthroughFactor,
			cfg.ConvergenceFraction,
			continuousSpans(cfg.Space),
		),
	}
	if cfg.Space != nil {
		r.traitNames = cfg.Space.Names()
	}
	if cfg.RetainGenerations > 0 {
		r.ledger = lineage.NewLedger(cfg.RetainGenerations)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start creates a run and moves it from READY to RUNNING.
func Start(cfg SimulationConfig, opts ...Option) (*Run, error) {
	r := New(cfg, opts...)
	if err := r.Start(); err != nil {
		return nil, err
	}
	return r, nil
}

// Start creates generation 0. An empty generation 0 ends the run as EXTINCT
// with a single empty summary.
func (r *Run) Start() error {
	if r.cfg.Space == nil || r.cfg.Fitness == nil || r.cfg.Policy == nil {
		return configErr("config", ProblemMissing, "run configuration was not validated")
	}
	if r.state != Ready {
		return &StateError{Op: "start", State: r.state}
	}

	r.population = Initialize(r.cfg, r.rng)
	r.generation = 0
	r.state = Running

	r.logger.Info("run started",
		"run_id", r.id.String(),
		"seed", r.cfg.Seed,
		"population", r.cfg.PopulationSize,
		"generations", r.cfg.Generations,
		"policy", r.cfg.Policy.Name(),
		"traits", r.traitNames,
	)

	if len(r.population) == 0 {
		s := telemetry.Summarize(0, r.population, r.traitNames)
		r.state = Extinct
		r.record(s)
		r.logger.Info("run extinct", "run_id", r.id.String(), "generation", 0)
	}
	return nil
}

// Initialize creates generation 0 from fresh trait samples.
func Initialize(cfg SimulationConfig, rng *rand.Rand) zork.Population {
	pop := make(zork.Population, cfg.PopulationSize)
	for i := range pop {
		pop[i] = zork.New(i, 0, cfg.Space.Sample(rng))
	}
	return pop
}

// Step advances one generation and returns its summary.
//
// A finished run returns its last summary again; in strict mode it also
// returns a *StateError. A run that was never started always errors.
func (r *Run) Step() (telemetry.GenerationSummary, error) {
	switch {
	case r.state == Ready:
		return telemetry.GenerationSummary{}, &StateError{Op: "step", State: r.state}
	case r.state.Terminal():
		last, _ := r.history.Last()
		if r.strict {
			return last, &StateError{Op: "step", State: r.state}
		}
		return last, nil
	}

	r.perf.StartStep()
	defer r.perf.EndStep()

	pop := r.population

	r.perf.StartPhase(telemetry.PhaseEvaluate)
	for i := range pop {
		pop[i].ClearFitness()
	}
	r.cfg.Fitness.ScoreAll(pop, r.cfg.Workers, r.cfg.ParallelThreshold)

	r.perf.StartPhase(telemetry.PhaseCull)
	judged := r.judge(pop)
	keep, bar := selection.Survivors(judged, r.cfg.Policy)

	r.perf.StartPhase(telemetry.PhaseSummary)
	s := telemetry.Summarize(r.generation, pop, r.traitNames)
	s.Survivors = len(keep)
	s.Culled = len(pop) - len(keep)
	s.SelfCross = len(keep) == 1
	if !math.IsInf(bar, 0) && !math.IsNaN(bar) {
		s.Cutoff = bar
	}
	r.hallOfFame.ConsiderAll(pop)

	if r.ledger != nil {
		r.perf.StartPhase(telemetry.PhaseLineage)
		survived := make([]bool, len(pop))
		for _, i := range keep {
			survived[i] = true
		}
		r.ledger.Record(pop, survived)
	}

	if len(keep) == 0 {
		r.state = Extinct
		r.population = zork.Population{}
	} else {
		if s.SelfCross {
			r.logger.Warn("single survivor self-crossing", "run_id", r.id.String(),
				"generation", s.Generation, "id", pop[keep[0]].ID)
		}
		r.perf.StartPhase(telemetry.PhaseBreed)
		r.population = r.breeder.Breed(pop.Pick(keep), r.rng)
		r.generation++
		if r.cfg.Generations > 0 && r.generation >= r.cfg.Generations {
			r.state = Complete
		}
	}

	s = r.record(s)

	switch r.state {
	case Extinct:
		r.logger.Info("run extinct", "run_id", r.id.String(), "generation", s.Generation)
	case Complete:
		r.logger.Info("run complete", "run_id", r.id.String(), "generations", r.generation,
			"fitness_mean", s.MeanFitness)
	}

	return s.Clone(), nil
}

// judge returns the scores the cull sees: fitness plus optional environmental luck.
// No random numbers are drawn when caprice is 0.
func (r *Run) judge(pop zork.Population) []float64 {
	scores := pop.Fitnesses()
	if r.cfg.Caprice <= 0 {
		return scores
	}
	for i := range scores {
		scores[i] += (r.rng.Float64()*2 - 1) * r.cfg.Caprice
	}
	return scores
}

// record stamps the run state on s, appends it, runs milestone detection and
// notifies observers.
func (r *Run) record(s telemetry.GenerationSummary) telemetry.GenerationSummary {
	s.State = r.state.String()
	r.history = append(r.history, s)

	found := r.detector.Check(s)
	for _, m := range found {
		m.LogMilestone(r.logger)
	}
	r.milestones = append(r.milestones, found...)

	for _, fn := range r.observers {
		fn(s.Clone(), append([]telemetry.Milestone(nil), found...))
	}
	return s
}

// RunToCompletion steps until the run is terminal or ctx is done.
// Cancellation is checked between generations; the history so far is returned with ctx's error.
func (r *Run) RunToCompletion(ctx context.Context) (RunHistory, error) {
	if r.state == Ready {
		return nil, &StateError{Op: "run", State: r.state}
	}
	for !r.state.Terminal() {
		if err := ctx.Err(); err != nil {
			return r.history.Clone(), fmt.Errorf("run interrupted at generation %d: %w", r.generation, err)
		}
		if _, err := r.Step(); err != nil {
			return r.history.Clone(), err
		}
	}
	return r.history.Clone(), nil
}

// ID returns the run's unique id.
func (r *Run) ID() string {
	return r.id.String()
}

// State returns the current state.
func (r *Run) State() State {
	return r.state
}

// Generation returns the number of the generation that runs next.
func (r *Run) Generation() int {
	return r.generation
}

// Config returns the run configuration.
func (r *Run) Config() SimulationConfig {
	return r.cfg
}

// History returns a copy of the recorded summaries.
func (r *Run) History() RunHistory {
	return r.history.Clone()
}

// Population returns a copy of the current generation.
func (r *Run) Population() zork.Population {
	return r.population.Clone()
}

// HallOfFame returns the run's hall of fame.
func (r *Run) HallOfFame() *telemetry.HallOfFame {
	return r.hallOfFame
}

// Milestones returns every milestone detected so far.
func (r *Run) Milestones() []telemetry.Milestone {
	return append([]telemetry.Milestone(nil), r.milestones...)
}

// Snapshot returns a read-only copy of the run for rendering.
func (r *Run) Snapshot() Snapshot {
	return Snapshot{
		RunID:      r.id.String(),
		State:      r.state,
		Generation: r.generation,
		Population: r.population.Clone(),
		History:    r.history.Clone(),
		HallOfFame: r.hallOfFame.Entries(),
		Milestones: r.Milestones(),
	}
}

// Ancestry resolves a recorded zork's family tree from the lineage ledger.
func (r *Run) Ancestry(generation, id, depth int) (*lineage.Family, error) {
	if r.ledger == nil {
		return nil, ErrLineageDisabled
	}
	return r.ledger.Ancestry(generation, id, depth)
}

func continuousSpans(space *traits.Space) map[string]float64 {
	spans := make(map[string]float64)
	if space == nil {
		return spans
	}
	for _, d := range space.Definitions() {
		if d.Kind == traits.Continuous && d.Span() > 0 {
			spans[d.Name] = d.Span()
		}
	}
	return spans
}

func seededRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(seedWord(seed, "a"), seedWord(seed, "b")))
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d:%s", seed, salt)
	return h.Sum64()
}
