package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/nrsolve/internal/newton"
)

const (
	DefaultSystem        = "circle_cubic"
	DefaultTolerance     = 1e-9
	DefaultMaxIterations = 20
)

type Config struct {
	System         string    `yaml:"system"`
	InitialGuess   []float64 `yaml:"initial_guess,omitempty"`
	Tolerance      float64   `yaml:"tolerance"`
	MaxIterations  int       `yaml:"max_iterations"`
	ConditionLimit float64   `yaml:"condition_limit,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		System:         DefaultSystem,
		Tolerance:      DefaultTolerance,
		MaxIterations:  DefaultMaxIterations,
		ConditionLimit: newton.DefaultConditionLimit,
	}
}

// Load reads a YAML file on top of DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
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
	if c.System == "" {
		return fmt.Errorf("system must be set")
	}
	if !(c.Tolerance > 0) {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	if math.IsNaN(c.ConditionLimit) || c.ConditionLimit < 0 {
		return fmt.Errorf("condition_limit must not be negative, got %g", c.ConditionLimit)
	}
	return nil
}

func (c *Config) SolverConfig() newton.Config {
	return newton.Config{
		Tolerance:      c.Tolerance,
		MaxIterations:  c.MaxIterations,
		ConditionLimit: c.ConditionLimit,
	}
}

// Guess returns the configured initial guess, or fallback when none is set.
func (c *Config) Guess(fallback newton.Vector) newton.Vector {
	if len(c.InitialGuess) == 0 {
		return fallback.Clone()
	}
	return newton.Vector(c.InitialGuess).Clone()
}
