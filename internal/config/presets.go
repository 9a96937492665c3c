package config

import "sort"

func preset(problem, stepper string, step, t1 float64) *Config {
	cfg := DefaultConfig()
	cfg.Problem = problem
	cfg.Stepper = stepper
	cfg.Step = step
	if t1 != 0 {
		cfg.T1 = Float(t1)
	}
	return cfg
}

func withParams(cfg *Config, params map[string]float64) *Config {
	cfg.Params = params
	return cfg
}

func withY0(cfg *Config, y0 ...float64) *Config {
	cfg.Y0 = y0
	return cfg
}

func withStop(cfg *Config, index int, level float64) *Config {
	cfg.StopWhen = &StopConfig{Index: index, Level: level}
	return cfg
}

var Presets = map[string]map[string]*Config{
	"ramp": {
		"uneven":  preset("ramp", "rk4", 1.23456, 0),
		"halfway": withStop(preset("ramp", "euler", 0.1, 0), 0, 2.5),
	},
	"decay": {
		"coarse": preset("decay", "euler", 0.1, 0),
		"fine":   preset("decay", "rk4", 0.001, 0),
	},
	"oscillator": {
		"slow": withParams(preset("oscillator", "rk4", 0.01, 0), map[string]float64{"omega": 0.5}),
		"fast": withParams(preset("oscillator", "rk4", 0.005, 0), map[string]float64{"omega": 4}),
	},
	"bounce": {
		"default": preset("bounce", "rk4", 0.01, 0),
		"coarse":  preset("bounce", "midpoint", 0.1, 0),
	},
	"pendulum": {
		"small":    withY0(withParams(preset("pendulum", "rk4", 0.01, 20), map[string]float64{"damping": 0}), 0.2, 0),
		"large":    withY0(preset("pendulum", "rk4", 0.01, 20), 2.5, 0),
		"spinning": withY0(preset("pendulum", "rk4", 0.01, 30), 0.1, 8),
	},
	"double": {
		"gentle": withY0(preset("double", "rk4", 0.01, 30), 0.3, 0.3, 0, 0),
		"chaos":  withY0(preset("double", "rk4", 0.005, 60), 3, 3, 0, 0),
	},
	"spring": {
		"bounce": preset("spring", "rk4", 0.01, 20),
		"stiff":  withParams(preset("spring", "rk4", 0.002, 10), map[string]float64{"stiffness": 100}),
	},
	"lorenz": {
		"classic":  preset("lorenz", "rk4", 0.005, 50),
		"periodic": withParams(preset("lorenz", "rk4", 0.005, 50), map[string]float64{"rho": 160}),
	},
	"vanderpol": {
		"relaxation": withParams(preset("vanderpol", "rk4", 0.005, 50), map[string]float64{"mu": 5}),
	},
	"threebody": {
		"figure8": withParams(preset("threebody", "rk4", 0.001, 10), map[string]float64{"g": 1}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(problem, preset string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	cfg, ok := problemPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
