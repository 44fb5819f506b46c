package selection

import (
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/pthm-cable/zorks/config"
	"github.com/pthm-cable/zorks/zork"
)

func TestSurvivors(t *testing.T) {
	scores := []float64{0.4, 0.9, 0.6, 0.6, 0.1, 0.6}

	tests := []struct {
		name   string
		policy Policy
		want   []int
	}{
		{"absolute", Absolute{Cutoff: 0.5}, []int{1, 2, 3, 5}},
		{"absolute inclusive", Absolute{Cutoff: 0.6}, []int{1, 2, 3, 5}},
		{"absolute none", Absolute{Cutoff: 0.95}, []int{}},
		{"absolute all", Absolute{Cutoff: 0}, []int{0, 1, 2, 3, 4, 5}},
		{"top 1", TopK{K: 1}, []int{1}},
		{"top 2 keeps ties", TopK{K: 2}, []int{1, 2, 3, 5}},
		{"top 0", TopK{K: 0}, []int{}},
		{"top k beyond n", TopK{K: 50}, []int{0, 1, 2, 3, 4, 5}},
		{"top 50 percent", TopPercent{Percent: 50}, []int{1, 2, 3, 5}},
		{"top 1 percent rounds up", TopPercent{Percent: 1}, []int{1}},
		{"top 100 percent", TopPercent{Percent: 100}, []int{0, 1, 2, 3, 4, 5}},
		{"top 0 percent", TopPercent{Percent: 0}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Survivors(scores, tt.policy)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Survivors(%s) = %v, want %v", tt.policy.Name(), got, tt.want)
			}
		})
	}
}

func TestSurvivorsEmpty(t *testing.T) {
	for _, p := range []Policy{Absolute{Cutoff: 0.5}, TopK{K: 3}, TopPercent{Percent: 50}} {
		got, _ := Survivors(nil, p)
		if len(got) != 0 {
			t.Errorf("%s: Survivors(nil) = %v", p.Name(), got)
		}
	}
}

func TestSurvivorsBar(t *testing.T) {
	_, bar := Survivors([]float64{0.2, 0.8, 0.5}, TopK{K: 2})
	if bar != 0.5 {
		t.Errorf("bar = %v, want 0.5", bar)
	}
	_, bar = Survivors([]float64{0.2}, TopK{K: 0})
	if !math.IsInf(bar, 1) {
		t.Errorf("keep-none bar = %v, want +Inf", bar)
	}
}

func TestAbsoluteIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	scores := make([]float64, 200)
	for i := range scores {
		// Coarse values force plenty of ties
		scores[i] = math.Round(rng.Float64()*20) / 20
	}

	for t1 := 0.0; t1 <= 1; t1 += 0.05 {
		for t2 := t1; t2 <= 1; t2 += 0.05 {
			loose, _ := Survivors(scores, Absolute{Cutoff: t1})
			strict, _ := Survivors(scores, Absolute{Cutoff: t2})
			if !subset(strict, loose) {
				t.Fatalf("cutoff %v survivors not a subset of cutoff %v survivors", t2, t1)
			}
		}
	}
}

func TestRankPoliciesAreMonotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 9))
	scores := make([]float64, 100)
	for i := range scores {
		scores[i] = math.Round(rng.Float64()*10) / 10
	}
	for k := 0; k < 100; k++ {
		strict, _ := Survivors(scores, TopK{K: k})
		loose, _ := Survivors(scores, TopK{K: k + 1})
		if !subset(strict, loose) {
			t.Fatalf("top %d not a subset of top %d", k, k+1)
		}
	}
}

func subset(a, b []int) bool {
	in := make(map[int]bool, len(b))
	for _, i := range b {
		in[i] = true
	}
	for _, i := range a {
		if !in[i] {
			return false
		}
	}
	return true
}

func TestCull(t *testing.T) {
	pop := zork.Population{
		{ID: 0, Fitness: 0.3, Evaluated: true},
		{ID: 1, Fitness: 0.7, Evaluated: true},
		{ID: 2, Fitness: 0.5, Evaluated: true},
	}

	survivors := Cull(pop, Absolute{Cutoff: 0.5})
	if len(survivors) != 2 || survivors[0].ID != 1 || survivors[1].ID != 2 {
		t.Errorf("Cull = %+v, want ids 1, 2 in order", survivors)
	}

	single := Cull(pop, TopK{K: 1})
	if len(single) != 1 || single[0].ID != 1 {
		t.Errorf("single survivor = %+v", single)
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SelectionConfig
		want     Policy
		wantErr  bool
		outRange bool
	}{
		{"absolute", config.SelectionConfig{Policy: "absolute", Cutoff: 0.4}, Absolute{Cutoff: 0.4}, false, false},
		{"default absolute", config.SelectionConfig{Cutoff: 0.2}, Absolute{Cutoff: 0.2}, false, false},
		{"top k", config.SelectionConfig{Policy: "top_k", TopK: 5}, TopK{K: 5}, false, false},
		{"top percent", config.SelectionConfig{Policy: "top_percent", TopPercent: 50}, TopPercent{Percent: 50}, false, false},
		{"negative k", config.SelectionConfig{Policy: "top_k", TopK: -1}, nil, true, true},
		{"percent over 100", config.SelectionConfig{Policy: "top_percent", TopPercent: 120}, nil, true, true},
		{"negative percent", config.SelectionConfig{Policy: "top_percent", TopPercent: -5}, nil, true, true},
		{"unknown", config.SelectionConfig{Policy: "tournament"}, nil, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrOutOfRange) != tt.outRange {
				t.Errorf("errors.Is(err, ErrOutOfRange) = %v, want %v (err %v)", !tt.outRange, tt.outRange, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("FromConfig = %#v, want %#v", got, tt.want)
			}
		})
	}
}
