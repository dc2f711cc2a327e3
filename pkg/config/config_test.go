package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.PoissonRatio != 0.25 {
		t.Errorf("Expected Poisson ratio 0.25, got %g", cfg.Model.PoissonRatio)
	}
	if cfg.Model.FudgeMode != "relative" || cfg.Model.FudgeValue != 0.01 {
		t.Errorf("Expected relative fudge 0.01, got %s %g", cfg.Model.FudgeMode, cfg.Model.FudgeValue)
	}
	if !cfg.Model.Detrend || !cfg.Model.NormalizeRange {
		t.Error("Expected detrending and range normalization on by default")
	}
	if cfg.Solver.UseSVD {
		t.Error("Expected the exact solver by default")
	}
	if cfg.Solver.CutoffMode != "ratio" {
		t.Errorf("Expected ratio cutoff mode, got %s", cfg.Solver.CutoffMode)
	}
	if cfg.Input.Weighting != "none" {
		t.Errorf("Expected no weighting by default, got %s", cfg.Input.Weighting)
	}
	if cfg.Processing.MaxMatrixMB != 8192 {
		t.Errorf("Expected 8192 MB matrix ceiling, got %d", cfg.Processing.MaxMatrixMB)
	}
}

// TestLoadConfigMissingFile verifies that a missing file yields the
// defaults.
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Model.PoissonRatio != 0.25 {
		t.Errorf("Expected default Poisson ratio, got %g", cfg.Model.PoissonRatio)
	}
}

// TestSaveLoadRoundTrip verifies that a saved configuration reads back
// unchanged.
func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.PoissonRatio = 0.4
	cfg.Solver.UseSVD = true
	cfg.Solver.CutoffMode = "variance"
	cfg.Solver.Cutoff = 95
	cfg.Input.Geographic = true
	cfg.Input.Weighting = "sigma"
	cfg.Output.Verbose = true

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	back, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if back.Model.PoissonRatio != 0.4 {
		t.Errorf("Poisson ratio did not round-trip: got %g", back.Model.PoissonRatio)
	}
	if !back.Solver.UseSVD || back.Solver.CutoffMode != "variance" || back.Solver.Cutoff != 95 {
		t.Errorf("Solver section did not round-trip: %+v", back.Solver)
	}
	if !back.Input.Geographic || back.Input.Weighting != "sigma" {
		t.Errorf("Input section did not round-trip: %+v", back.Input)
	}
	if !back.Output.Verbose {
		t.Error("Output section did not round-trip")
	}
}

// TestLoadConfigPartialFile verifies that unspecified keys keep their
// defaults.
func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("model:\n  poissonRatio: 0.3\n"), 0644); err != nil {
		t.Fatalf("Writing fixture failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Model.PoissonRatio != 0.3 {
		t.Errorf("Expected overridden Poisson ratio 0.3, got %g", cfg.Model.PoissonRatio)
	}
	if cfg.Model.FudgeValue != 0.01 {
		t.Errorf("Expected default fudge value to survive, got %g", cfg.Model.FudgeValue)
	}
	if cfg.Processing.MaxMatrixMB != 8192 {
		t.Errorf("Expected default matrix ceiling to survive, got %d", cfg.Processing.MaxMatrixMB)
	}
}
