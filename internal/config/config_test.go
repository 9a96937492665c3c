package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Problem != "oscillator" {
		t.Errorf("expected problem oscillator, got %s", cfg.Problem)
	}
	if cfg.Step <= 0 {
		t.Error("step should be positive")
	}
	if cfg.SampleStep <= 0 {
		t.Error("sample step should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no problem", func(c *Config) { c.Problem = "" }},
		{"no stepper", func(c *Config) { c.Stepper = "" }},
		{"zero step", func(c *Config) { c.Step = 0 }},
		{"negative step", func(c *Config) { c.Step = -0.1 }},
		{"zero sample step", func(c *Config) { c.SampleStep = 0 }},
		{"negative max steps", func(c *Config) { c.MaxSteps = -1 }},
		{"zero convergence", func(c *Config) { c.Events.Convergence = 0 }},
		{"zero iterations", func(c *Config) { c.Events.MaxIterations = 0 }},
		{"negative window", func(c *Config) { c.Events.Window = -1 }},
		{"negative stop index", func(c *Config) { c.StopWhen = &StopConfig{Index: -1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := `problem: bounce
stepper: midpoint
step: 0.02
t1: 10
events:
  convergence: 1.0e-8
stop_when:
  index: 1
  level: 0.5
params:
  omega: 2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Problem != "bounce" || cfg.Stepper != "midpoint" || cfg.Step != 0.02 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.T0 != nil {
		t.Errorf("t0 should stay unset, got %v", *cfg.T0)
	}
	if cfg.T1 == nil || *cfg.T1 != 10 {
		t.Errorf("expected t1 10, got %v", cfg.T1)
	}
	if cfg.Events.Convergence != 1e-8 {
		t.Errorf("expected convergence 1e-8, got %v", cfg.Events.Convergence)
	}
	// unset fields keep their defaults
	if cfg.Events.MaxIterations != DefaultMaxIterations {
		t.Errorf("expected default iterations, got %d", cfg.Events.MaxIterations)
	}
	if cfg.SampleStep != DefaultSampleStep {
		t.Errorf("expected default sample step, got %v", cfg.SampleStep)
	}
	if cfg.StopWhen == nil || cfg.StopWhen.Index != 1 || cfg.StopWhen.Level != 0.5 {
		t.Errorf("unexpected stop_when %+v", cfg.StopWhen)
	}
	if cfg.Params["omega"] != 2 {
		t.Errorf("expected omega 2, got %v", cfg.Params["omega"])
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("step: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.yaml")
	want := GetPreset("pendulum", "spinning")

	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Problem != want.Problem || got.Step != want.Step || *got.T1 != *want.T1 {
		t.Errorf("round trip changed config: %+v", got)
	}
	if len(got.Y0) != 2 || got.Y0[1] != 8 {
		t.Errorf("expected y0 [0.1 8], got %v", got.Y0)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("pendulum", "small")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Y0[0] != 0.2 {
		t.Errorf("expected theta 0.2, got %f", cfg.Y0[0])
	}

	// presets are copies
	cfg.Params["damping"] = 3
	cfg.Y0[0] = 1
	again := GetPreset("pendulum", "small")
	if again.Params["damping"] != 0 || again.Y0[0] != 0.2 {
		t.Error("modifying a preset copy changed the preset")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	cfg := GetPreset("pendulum", "nonexistent")
	if cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}

	cfg = GetPreset("nonexistent", "small")
	if cfg != nil {
		t.Error("expected nil for nonexistent problem")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("pendulum")
	want := []string{"large", "small", "spinning"}
	if len(presets) != len(want) {
		t.Fatalf("expected %v, got %v", want, presets)
	}
	for i := range want {
		if presets[i] != want[i] {
			t.Errorf("expected %v, got %v", want, presets)
		}
	}

	presets = ListPresets("nonexistent")
	if presets != nil {
		t.Error("expected nil for nonexistent problem")
	}
}

func TestPresetsAreValid(t *testing.T) {
	for problem, presets := range Presets {
		for name, cfg := range presets {
			if cfg.Problem != problem {
				t.Errorf("%s/%s: problem %q", problem, name, cfg.Problem)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", problem, name, err)
			}
		}
	}
}
