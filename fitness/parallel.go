package fitness

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/pthm-cable/zorks/zork"
)

// DefaultParallelThreshold is the minimum population to score concurrently.
// Below this, goroutine overhead outweighs the work.
const DefaultParallelThreshold = 512

// minChunk is the smallest slice of zorks handed to one goroutine.
const minChunk = 64

// ScoreAll sets every member's fitness in place.
// Each index is written by exactly one goroutine, so results do not depend on scheduling.
// workers <= 0 uses GOMAXPROCS; threshold <= 0 uses DefaultParallelThreshold.
func (e *Evaluator) ScoreAll(pop zork.Population, workers, threshold int) {
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	if len(pop) < threshold || workers == 1 {
		e.scoreRange(pop, 0, len(pop))
		return
	}

	chunk := (len(pop) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	p := pool.New().WithMaxGoroutines(workers)
	for start := 0; start < len(pop); start += chunk {
		end := min(start+chunk, len(pop))
		p.Go(func() {
			e.scoreRange(pop, start, end)
		})
	}
	p.Wait()
}

func (e *Evaluator) scoreRange(pop zork.Population, start, end int) {
	for i := start; i < end; i++ {
		pop[i].SetFitness(e.Score(pop[i].Traits))
	}
}
