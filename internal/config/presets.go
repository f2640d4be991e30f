package config

import "sort"

var Presets = map[string]map[string]*Config{
	"circle_cubic": {
		"default": {
			System: "circle_cubic", InitialGuess: []float64{2, -1},
			Tolerance: 1e-9, MaxIterations: 20,
		},
		"mirror": {
			System: "circle_cubic", InitialGuess: []float64{-1, 2},
			Tolerance: 1e-9, MaxIterations: 20,
		},
		"loose": {
			System: "circle_cubic", InitialGuess: []float64{2, -1},
			Tolerance: 1e-3, MaxIterations: 10,
		},
		"one_step": {
			System: "circle_cubic", InitialGuess: []float64{2, -1},
			Tolerance: 1e-12, MaxIterations: 1,
		},
	},
	"sqrt5": {
		"default": {
			System: "sqrt5", InitialGuess: []float64{3},
			Tolerance: 1e-12, MaxIterations: 20,
		},
		"negative": {
			System: "sqrt5", InitialGuess: []float64{-3},
			Tolerance: 1e-12, MaxIterations: 20,
		},
	},
	"circle_line": {
		"default": {
			System: "circle_line", InitialGuess: []float64{1, 0.5},
			Tolerance: 1e-9, MaxIterations: 20,
		},
		"third_quadrant": {
			System: "circle_line", InitialGuess: []float64{-1, -0.5},
			Tolerance: 1e-9, MaxIterations: 20,
		},
	},
	"flat": {
		"default": {
			System: "flat", InitialGuess: []float64{2},
			Tolerance: 1e-9, MaxIterations: 20,
		},
	},
}

func GetPreset(system, preset string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	cfg, ok := systemPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	c.InitialGuess = append([]float64(nil), cfg.InitialGuess...)
	return &c
}

func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
