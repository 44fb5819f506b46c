package traits

import (
	"math"
	"testing"
)

func TestMutateContinuousNeighborhood(t *testing.T) {
	d := Definition{Name: "x", Min: 0, Max: 10}
	rng := testRNG(11)

	for i := 0; i < 1000; i++ {
		got := Mutate(5, d, 0.1, rng)
		if math.Abs(got-5) > 1+1e-9 {
			t.Fatalf("Mutate(5) = %v, outside +-1 neighborhood", got)
		}
	}
}

func TestMutateContinuousClips(t *testing.T) {
	d := Definition{Name: "x", Min: 0, Max: 10}
	rng := testRNG(12)

	for i := 0; i < 1000; i++ {
		got := Mutate(9.9, d, 0.5, rng)
		if got < 0 || got > 10 {
			t.Fatalf("Mutate(9.9) = %v, outside domain", got)
		}
	}
}

func TestMutateZeroMagnitude(t *testing.T) {
	d := Definition{Name: "x", Min: 0, Max: 10}
	if got := Mutate(3, d, 0, testRNG(1)); got != 3 {
		t.Errorf("Mutate with zero magnitude = %v, want 3", got)
	}
}

func TestMutateDiscreteExcludesCurrent(t *testing.T) {
	d := Definition{Name: "c", Kind: Discrete, Options: []float64{0, 1, 2}}
	rng := testRNG(13)
	counts := map[float64]int{}

	for i := 0; i < 3000; i++ {
		got := Mutate(1, d, 0.1, rng)
		if got == 1 {
			t.Fatal("discrete mutation returned the current value")
		}
		counts[got]++
	}
	// Both remaining options should be drawn about equally often
	for _, o := range []float64{0, 2} {
		if counts[o] < 1300 || counts[o] > 1700 {
			t.Errorf("option %v drawn %d times, want ~1500", o, counts[o])
		}
	}
}

func TestMutateSingleOption(t *testing.T) {
	d := Definition{Name: "c", Kind: Discrete, Options: []float64{7}}
	if got := Mutate(7, d, 0.5, testRNG(1)); got != 7 {
		t.Errorf("Mutate single option = %v, want 7", got)
	}
}

func TestMutateIsPure(t *testing.T) {
	d := Definition{Name: "x", Min: 0, Max: 1}
	a := Mutate(0.5, d, 0.2, testRNG(99))
	b := Mutate(0.5, d, 0.2, testRNG(99))
	if a != b {
		t.Errorf("same seed produced %v and %v", a, b)
	}
}
