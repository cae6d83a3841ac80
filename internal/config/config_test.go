package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"bart-backend/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load with missing file should fall back to defaults: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Task.Repetitions != 20 || cfg.Task.BlockSize != 20 {
		t.Errorf("expected 20/20 trial defaults, got %d/%d",
			cfg.Task.Repetitions, cfg.Task.BlockSize)
	}
	if len(cfg.Task.Balloons) != 3 {
		t.Fatalf("expected 3 default balloon types, got %d", len(cfg.Task.Balloons))
	}
	if cfg.Task.Balloons[1].MaxPumps != 32 {
		t.Errorf("expected green max_pumps 32, got %d", cfg.Task.Balloons[1].MaxPumps)
	}
	if cfg.Task.IdleTimeoutSec != 15 {
		t.Errorf("expected idle timeout 15s, got %d", cfg.Task.IdleTimeoutSec)
	}
	if cfg.Recorder.Backend != "csv" {
		t.Errorf("expected csv recorder default, got %s", cfg.Recorder.Backend)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.yaml")
	yaml := `
server:
  port: "9000"
task:
  sequence_seed: 111
  balloons:
    - name: solo
      color: "#ffffff"
      max_pumps: 10
      reward_per_pump: 0.25
recorder:
  backend: sqlite
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "9001")
	t.Setenv("TASK_SEED", "env-seed")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9001" {
		t.Errorf("env should override yaml port, got %s", cfg.Server.Port)
	}
	if cfg.Task.TaskSeed != "env-seed" {
		t.Errorf("expected env task seed, got %s", cfg.Task.TaskSeed)
	}
	if cfg.Task.SequenceSeed != 111 {
		t.Errorf("expected yaml sequence seed 111, got %d", cfg.Task.SequenceSeed)
	}
	if len(cfg.Task.Balloons) != 1 || cfg.Task.Balloons[0].Name != "solo" {
		t.Errorf("expected yaml balloon set, got %+v", cfg.Task.Balloons)
	}
	if cfg.Recorder.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", cfg.Recorder.Backend)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	if err := cfg.Validate(); err == nil {
		t.Error("missing jwt secret should fail validation")
	}

	cfg.Auth.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config with secret should validate: %v", err)
	}

	cfg.Task.BlockSize = 7 // does not divide 60
	if err := cfg.Validate(); err == nil {
		t.Error("block size that does not divide the run should fail")
	}

	cfg.Task.BlockSize = 20
	cfg.Task.Balloons[0].MaxPumps = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max_pumps should fail")
	}
}
