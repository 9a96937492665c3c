package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStep          = 0.01
	DefaultMaxSteps      = 1_000_000
	DefaultSampleStep    = 0.05
	DefaultConvergence   = 1e-10
	DefaultMaxIterations = 100
)

type Config struct {
	Problem    string  `yaml:"problem"`
	Stepper    string  `yaml:"stepper"`
	Step       float64 `yaml:"step"`
	MaxSteps   int     `yaml:"max_steps"`
	SampleStep float64 `yaml:"sample_step"`
	// T0 and T1 override the problem's own span when set.
	T0 *float64 `yaml:"t0,omitempty"`
	T1 *float64 `yaml:"t1,omitempty"`
	// Y0 overrides the problem's initial state when set.
	Y0       []float64          `yaml:"y0,omitempty"`
	Events   EventsConfig       `yaml:"events"`
	StopWhen *StopConfig        `yaml:"stop_when,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
}

type EventsConfig struct {
	Convergence   float64 `yaml:"convergence"`
	MaxIterations int     `yaml:"max_iterations"`
	// MaxCheck is the largest interval between two checks of a switching
	// function. Zero checks step ends only.
	MaxCheck float64 `yaml:"max_check"`
	Window   float64 `yaml:"window"`
}

// StopConfig stops a run when component Index of the state crosses Level.
type StopConfig struct {
	Index int     `yaml:"index"`
	Level float64 `yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem:    "oscillator",
		Stepper:    "rk4",
		Step:       DefaultStep,
		MaxSteps:   DefaultMaxSteps,
		SampleStep: DefaultSampleStep,
		Events: EventsConfig{
			Convergence:   DefaultConvergence,
			MaxIterations: DefaultMaxIterations,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Problem == "" {
		return fmt.Errorf("problem is required")
	}
	if c.Stepper == "" {
		return fmt.Errorf("stepper is required")
	}
	if c.Step <= 0 {
		return fmt.Errorf("step must be positive, got %v", c.Step)
	}
	if c.SampleStep <= 0 {
		return fmt.Errorf("sample step must be positive, got %v", c.SampleStep)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max steps must not be negative, got %d", c.MaxSteps)
	}
	if c.Events.Convergence <= 0 {
		return fmt.Errorf("event convergence must be positive, got %v", c.Events.Convergence)
	}
	if c.Events.MaxIterations <= 0 {
		return fmt.Errorf("event max iterations must be positive, got %d", c.Events.MaxIterations)
	}
	if c.Events.MaxCheck < 0 || c.Events.Window < 0 {
		return fmt.Errorf("event max check and window must not be negative")
	}
	if c.StopWhen != nil && c.StopWhen.Index < 0 {
		return fmt.Errorf("stop_when index must not be negative, got %d", c.StopWhen.Index)
	}
	return nil
}

// Clone returns a deep copy, so presets can be customised safely.
func (c *Config) Clone() *Config {
	out := *c
	if c.T0 != nil {
		t0 := *c.T0
		out.T0 = &t0
	}
	if c.T1 != nil {
		t1 := *c.T1
		out.T1 = &t1
	}
	if c.Y0 != nil {
		out.Y0 = append([]float64(nil), c.Y0...)
	}
	if c.StopWhen != nil {
		stop := *c.StopWhen
		out.StopWhen = &stop
	}
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}

func Float(v float64) *float64 { return &v }
