package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Physics.SubstepRate != 120 {
		t.Fatalf("SubstepRate = %v", cfg.Physics.SubstepRate)
	}
	if cfg.Physics.ConstraintIterations != 4 {
		t.Fatalf("ConstraintIterations = %d", cfg.Physics.ConstraintIterations)
	}
	if cfg.Physics.MaxStep != 2.0 {
		t.Fatalf("MaxStep = %v", cfg.Physics.MaxStep)
	}
	if cfg.Physics.SettleFrames != 15 {
		t.Fatalf("SettleFrames = %d", cfg.Physics.SettleFrames)
	}
	if cfg.Physics.MaxSubstepsPerFrame != 8 {
		t.Fatalf("MaxSubstepsPerFrame = %d", cfg.Physics.MaxSubstepsPerFrame)
	}
	if cfg.Physics.Gravity != 9.8 {
		t.Fatalf("Gravity = %v", cfg.Physics.Gravity)
	}
	if cfg.Solver.ChainWorkers != 0 {
		t.Fatalf("ChainWorkers = %d", cfg.Solver.ChainWorkers)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingPathUsesDefaults(t *testing.T) {
	// Run from an empty directory so no stray config.yaml is picked up.
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Physics.SubstepRate != 120 {
		t.Fatalf("expected default substep rate, got %v", cfg.Physics.SubstepRate)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("physics:\n  substep_rate: 90\n  gravity: 3.7\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Physics.SubstepRate != 90 {
		t.Fatalf("SubstepRate = %v", cfg.Physics.SubstepRate)
	}
	if cfg.Physics.Gravity != 3.7 {
		t.Fatalf("Gravity = %v", cfg.Physics.Gravity)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Level = %q", cfg.Logging.Level)
	}

	// Values the file does not mention keep their defaults.
	if cfg.Physics.ConstraintIterations != 4 {
		t.Fatalf("ConstraintIterations = %d", cfg.Physics.ConstraintIterations)
	}
	if cfg.Physics.SettleFrames != 15 {
		t.Fatalf("SettleFrames = %d", cfg.Physics.SettleFrames)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("physics: ["), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Physics.SubstepRate = 60
	cfg.Solver.ChainWorkers = 4
	cfg.Logging.LogFile = "avatar.log"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Physics.SubstepRate != 60 {
		t.Fatalf("SubstepRate = %v", loaded.Physics.SubstepRate)
	}
	if loaded.Solver.ChainWorkers != 4 {
		t.Fatalf("ChainWorkers = %d", loaded.Solver.ChainWorkers)
	}
	if loaded.Logging.LogFile != "avatar.log" {
		t.Fatalf("LogFile = %q", loaded.Logging.LogFile)
	}
}
