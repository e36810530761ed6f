package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	if cfg.Grid.Width != 256 || cfg.Grid.Height != 160 {
		t.Errorf("default grid = %dx%d, want 256x160", cfg.Grid.Width, cfg.Grid.Height)
	}
	if cfg.Particles.PerCell != 9 {
		t.Errorf("default per_cell = %d, want 9", cfg.Particles.PerCell)
	}
	if cfg.Fluid.PressureIters != 40 {
		t.Errorf("default pressure_iters = %d, want 40", cfg.Fluid.PressureIters)
	}
	if cfg.Sim.Preset != "floor" {
		t.Errorf("default preset = %q, want floor", cfg.Sim.Preset)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	if cfg.Derived.CellCount != cfg.Grid.Width*cfg.Grid.Height {
		t.Errorf("CellCount = %d, want %d", cfg.Derived.CellCount, cfg.Grid.Width*cfg.Grid.Height)
	}
	if cfg.Derived.MaxParticles != cfg.Derived.CellCount*cfg.Particles.PerCell {
		t.Errorf("MaxParticles = %d, want %d", cfg.Derived.MaxParticles, cfg.Derived.CellCount*cfg.Particles.PerCell)
	}
	// Fluidity 60 maps to 0.6.
	if cfg.Derived.Fluidity01 < 0.59 || cfg.Derived.Fluidity01 > 0.61 {
		t.Errorf("Fluidity01 = %v, want 0.6", cfg.Derived.Fluidity01)
	}
}

func TestRecomputeAfterMutation(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	cfg.Grid.Width = 64
	cfg.Grid.Height = 48
	cfg.Sand.Fluidity = 150 // out of range, clamps to 1
	cfg.Recompute()

	if cfg.Derived.CellCount != 64*48 {
		t.Errorf("CellCount = %d after recompute, want %d", cfg.Derived.CellCount, 64*48)
	}
	if cfg.Derived.Fluidity01 != 1 {
		t.Errorf("Fluidity01 = %v, want clamped to 1", cfg.Derived.Fluidity01)
	}
}

func TestLoadUserOverridesMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("grid:\n  width: 32\n  height: 24\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) failed: %v", path, err)
	}

	if cfg.Grid.Width != 32 || cfg.Grid.Height != 24 {
		t.Errorf("grid = %dx%d, want 32x24 from file", cfg.Grid.Width, cfg.Grid.Height)
	}
	// Untouched sections keep their defaults.
	if cfg.Fluid.Gravity != 120 {
		t.Errorf("gravity = %v, want default 120", cfg.Fluid.Gravity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/cfg.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	cfg.Fluid.FlipRatio = 0.77

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("reloading written config failed: %v", err)
	}
	if back.Fluid.FlipRatio != 0.77 {
		t.Errorf("flip_ratio = %v after round trip, want 0.77", back.Fluid.FlipRatio)
	}
}
