package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/zorks/batch"
	"github.com/pthm-cable/zorks/config"
	"github.com/pthm-cable/zorks/sim"
	"github.com/pthm-cable/zorks/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, time-based if that is 0 too)")
	generations := flag.Int("generations", -1, "Generation limit, 0 = until extinction (-1 = use config)")
	population := flag.Int("population", -1, "Zorks per generation (-1 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot and hall of fame")
	logStats := flag.Bool("log-stats", false, "Output per-generation stats via slog")
	runs := flag.Int("runs", 1, "Number of seeds to run; more than 1 runs a batch")
	workers := flag.Int("workers", 0, "Parallel workers (0 = GOMAXPROCS)")
	strict := flag.Bool("strict", false, "Treat stepping a finished run as an error")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	raw := config.Cfg()

	raw.Seed = resolveSeed(*seed, raw.Seed, func() int64 { return time.Now().UnixNano() })
	if *generations >= 0 {
		raw.Population.Generations = *generations
	}
	if *population >= 0 {
		raw.Population.Size = *population
	}
	if *workers > 0 {
		raw.Parallel.Workers = *workers
	}

	cfg, err := sim.ValidateConfig(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:")
		for _, p := range sim.Problems(err) {
			fmt.Fprintf(os.Stderr, "  [%s] %s\n", p.Kind, p.Error())
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	if output != nil {
		defer output.Close()
		if err := output.WriteConfig(raw); err != nil {
			slog.Error("failed to write config", "error", err)
		}
	}

	if *runs > 1 {
		err = runBatch(ctx, cfg, *runs, *workers, output)
	} else {
		err = runSingle(ctx, cfg, *strict, *logStats, output)
	}
	if err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

// resolveSeed picks the run seed: a non-zero flag wins, then a non-zero
// config seed, then now().
func resolveSeed(flagSeed, configSeed int64, now func() int64) int64 {
	switch {
	case flagSeed != 0:
		return flagSeed
	case configSeed != 0:
		return configSeed
	default:
		return now()
	}
}

func runSingle(ctx context.Context, cfg sim.SimulationConfig, strict, logStats bool, output *telemetry.OutputManager) error {
	perf := telemetry.NewPerfCollector(cfg.HistoryWindow)

	observe := func(s telemetry.GenerationSummary, milestones []telemetry.Milestone) {
		if logStats {
			s.LogStats(slog.Default())
		}
		if output == nil {
			return
		}
		if err := output.WriteGeneration(s); err != nil {
			slog.Error("failed to write generation", "error", err)
		}
		for _, m := range milestones {
			if err := output.WriteMilestone(m); err != nil {
				slog.Error("failed to write milestone", "error", err)
			}
		}
		if err := output.WritePerf(perf.Stats(), s.Generation); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	r, err := sim.Start(cfg,
		sim.WithStrict(strict),
		sim.WithPerf(perf),
		sim.WithObserver(observe),
	)
	if err != nil {
		return err
	}

	history, runErr := r.RunToCompletion(ctx)

	if logStats {
		perf.Stats().LogStats(slog.Default())
	}
	if output != nil {
		if err := output.WriteHallOfFame(r.HallOfFame()); err != nil {
			slog.Error("failed to write hall of fame", "error", err)
		}
	}

	last, _ := history.Last()
	slog.Info("simulation finished",
		"run_id", r.ID(),
		"state", r.State().String(),
		"generations", len(history),
		"summary", last,
		"best_fitness", r.HallOfFame().TopFitness(),
	)
	return runErr
}

func runBatch(ctx context.Context, cfg sim.SimulationConfig, n, workers int, output *telemetry.OutputManager) error {
	seeds := batch.Seeds(cfg.Seed, n)

	slog.Info("starting batch", "runs", n, "first_seed", cfg.Seed, "workers", workers)
	// Per-run chatter is dropped; the batch report is the output.
	quiet := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn + 1}))

	rep, err := batch.Run(ctx, cfg, seeds, workers, sim.WithLogger(quiet))
	if err != nil {
		return err
	}

	if output != nil {
		if err := output.WriteCSV("batch.csv", rep.Runs); err != nil {
			slog.Error("failed to write batch results", "error", err)
		}
	}
	slog.Info("batch finished", "report", rep, "mean_fitness_by_generation", rep.MeanFitnessByGen)
	return nil
}
