package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/zorks/batch"
	"github.com/pthm-cable/zorks/config"
)

// evalRecord is one row of optimize_log.csv.
type evalRecord struct {
	Eval              int     `csv:"eval"`
	Objective         float64 `csv:"objective"`
	Survival          float64 `csv:"survival"`
	Quality           float64 `csv:"quality"`
	ExtinctionRate    float64 `csv:"extinction_rate"`
	MutationRate      float64 `csv:"mutation_rate"`
	MutationMagnitude float64 `csv:"mutation_magnitude"`
	Cutoff            float64 `csv:"cutoff"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	generations := flag.Int("generations", 30, "Generation limit per run (must be > 0)")
	seeds := flag.Int("seeds", 8, "Number of seeds per evaluation")
	workers := flag.Int("workers", 0, "Parallel runs per evaluation (0 = GOMAXPROCS)")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if *generations <= 0 {
		log.Fatal("--generations must be > 0")
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg().Clone()
	baseCfg.Population.Generations = *generations

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	params := NewParamVector(baseCfg)
	evaluator := NewFitnessEvaluator(params, batch.Seeds(42, *seeds), *workers, baseCfg)

	// Set up CMA-ES
	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(ctx, params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential; each evaluation is already a parallel batch
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	startTime := time.Now()

	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		objective := originalFunc(x)
		evalCount++

		clamped := params.Clamp(params.Denormalize(x))
		last := evaluator.Last()
		rec := []evalRecord{{
			Eval:              evalCount,
			Objective:         objective,
			Survival:          last.Survival,
			Quality:           last.Quality,
			ExtinctionRate:    last.ExtinctionRate,
			MutationRate:      clamped[0],
			MutationMagnitude: clamped[1],
			Cutoff:            clamped[2],
		}}
		// First write includes headers
		var werr error
		if evalCount == 1 {
			werr = gocsv.Marshal(rec, logFile)
		} else {
			werr = gocsv.MarshalWithoutHeaders(rec, logFile)
		}
		if werr != nil {
			log.Printf("failed to log evaluation: %v", werr)
		}

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

		fmt.Printf("Eval %d/%d: survival=%.2f quality=%.3f extinct=%.0f%% (best=%.4f) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, last.Survival, last.Quality, last.ExtinctionRate*100,
			evaluator.Best().Objective, formatDuration(elapsed), formatDuration(remaining))

		return objective
	}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, generations per run: %d\n", *seeds, *generations)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	best := evaluator.Best()
	var bestParams []float64
	if result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if best.Params != nil {
		bestParams = best.Params
	}
	if bestParams == nil {
		bestParams = params.DefaultVector()
	}

	totalTime := time.Since(startTime)
	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(totalTime))
	fmt.Printf("Best objective: %.4f (survival=%.2f quality=%.3f)\n", best.Objective, best.Survival, best.Quality)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Name, bestParams[i])
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}

	// Per-seed results of the best evaluation
	if len(best.Report.Runs) > 0 {
		runsPath := filepath.Join(*outputDir, "best_runs.csv")
		f, err := os.Create(runsPath)
		if err != nil {
			log.Printf("failed to create best runs file: %v", err)
			return
		}
		defer f.Close()
		if err := gocsv.Marshal(best.Report.Runs, f); err != nil {
			log.Printf("failed to write best runs: %v", err)
		} else {
			fmt.Printf("Best runs saved to: %s\n", runsPath)
		}
	}
}
