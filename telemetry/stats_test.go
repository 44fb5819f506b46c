package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/zorks/traits"
	"github.com/pthm-cable/zorks/zork"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func scoredPop(fitness []float64, legs []float64) zork.Population {
	pop := make(zork.Population, len(fitness))
	for i := range pop {
		pop[i] = zork.New(i, 3, traits.Values{"leg_length": legs[i]})
		pop[i].SetFitness(fitness[i])
	}
	return pop
}

func TestSummarize(t *testing.T) {
	pop := scoredPop([]float64{0.2, 0.4, 0.6, 0.8}, []float64{1, 2, 3, 4})
	pop[1].Mutated = []string{"leg_length"}

	s := Summarize(3, pop, []string{"leg_length"})

	if s.Generation != 3 || s.Population != 4 || s.Mutations != 1 {
		t.Errorf("counts = %+v", s)
	}
	if math.Abs(s.MeanFitness-0.5) > 1e-9 {
		t.Errorf("mean fitness = %v, want 0.5", s.MeanFitness)
	}
	if s.MinFitness != 0.2 || s.MaxFitness != 0.8 {
		t.Errorf("min/max = %v/%v", s.MinFitness, s.MaxFitness)
	}
	if math.Abs(s.MedianFitness-0.5) > 1e-9 {
		t.Errorf("median = %v, want 0.5", s.MedianFitness)
	}

	legs, ok := s.Trait("leg_length")
	if !ok {
		t.Fatal("leg_length stats missing")
	}
	if math.Abs(legs.Mean-2.5) > 1e-9 {
		t.Errorf("leg mean = %v, want 2.5", legs.Mean)
	}
	// Sample std-dev of 1..4
	if math.Abs(legs.StdDev-math.Sqrt(5.0/3.0)) > 1e-9 {
		t.Errorf("leg std = %v, want %v", legs.StdDev, math.Sqrt(5.0/3.0))
	}
	if legs.Min != 1 || legs.Max != 4 {
		t.Errorf("leg range = %v..%v", legs.Min, legs.Max)
	}
}

func TestSummarizeDegenerate(t *testing.T) {
	empty := Summarize(0, zork.Population{}, []string{"leg_length"})
	if empty.Population != 0 || empty.MeanFitness != 0 || empty.StdFitness != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
	if len(empty.Traits) != 1 || empty.Traits[0].Mean != 0 {
		t.Errorf("empty trait stats = %+v", empty.Traits)
	}

	single := Summarize(1, scoredPop([]float64{0.7}, []float64{2}), []string{"leg_length"})
	if single.StdFitness != 0 || single.Traits[0].StdDev != 0 {
		t.Errorf("single zork std-devs should be 0: %+v", single)
	}
	if single.MeanFitness != 0.7 || single.MedianFitness != 0.7 {
		t.Errorf("single zork fitness = %+v", single)
	}
}

func TestSummaryCloneIsIndependent(t *testing.T) {
	s := Summarize(0, scoredPop([]float64{0.5}, []float64{1}), []string{"leg_length"})
	c := s.Clone()
	c.Traits[0].Mean = 99
	if s.Traits[0].Mean == 99 {
		t.Error("clone shares trait stats")
	}
}
