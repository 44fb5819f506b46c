package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Population.Size != 100 {
		t.Errorf("population size = %d, want 100", cfg.Population.Size)
	}
	if len(cfg.Traits) != 4 {
		t.Fatalf("expected 4 default traits, got %d", len(cfg.Traits))
	}

	wings := cfg.Trait("wingspan")
	if wings == nil {
		t.Fatal("wingspan trait missing from defaults")
	}
	if wings.Fitness.Curve != "threshold" || wings.Fitness.Cutoff != 32 {
		t.Errorf("wingspan fitness = %+v, want threshold at 32", wings.Fitness)
	}
	if cfg.Trait("tail") != nil {
		t.Error("unexpected trait tail")
	}
	if cfg.Selection.Caprice != 0 {
		t.Errorf("caprice = %v, want 0 (opt-in)", cfg.Selection.Caprice)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	data := []byte("population:\n  size: 20\nmutation:\n  rate: 0.5\ntrait_overrides:\n  leg_length:\n    max: 3.0\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Population.Size != 20 {
		t.Errorf("population size = %d, want 20", cfg.Population.Size)
	}
	// Untouched fields keep their defaults
	if cfg.Population.Generations != 30 {
		t.Errorf("generations = %d, want default 30", cfg.Population.Generations)
	}
	if cfg.Mutation.Rate != 0.5 {
		t.Errorf("mutation rate = %v, want 0.5", cfg.Mutation.Rate)
	}
	ov, ok := cfg.TraitOverrides["leg_length"]
	if !ok || ov.Max == nil || *ov.Max != 3.0 {
		t.Errorf("leg_length override not loaded: %+v", ov)
	}
	if len(cfg.Traits) != 4 {
		t.Errorf("traits should keep defaults, got %d", len(cfg.Traits))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()

	clone.Traits[0].Min = -5
	clone.Population.Size = 1

	if cfg.Traits[0].Min == -5 || cfg.Population.Size == 1 {
		t.Error("mutating clone changed original")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Seed = 42
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Seed != 42 {
		t.Errorf("seed = %d, want 42", loaded.Seed)
	}
	if loaded.Trait("eye_color") == nil || len(loaded.Trait("eye_color").Labels) != 3 {
		t.Error("eye_color labels lost in round trip")
	}
}
