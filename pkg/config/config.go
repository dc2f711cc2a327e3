// Package config provides configuration loading and management for
// gpsgridder. It handles loading configuration from YAML files and provides
// default values; command-line flags override whatever the file sets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Model parameters of the elastic-sheet fit.
	Model struct {
		// PoissonRatio is the effective Poisson's ratio of the sheet.
		PoissonRatio float64 `yaml:"poissonRatio"`

		// FudgeMode is "relative" (fudge = value * r_min) or "absolute".
		FudgeMode string `yaml:"fudgeMode"`

		// FudgeValue is the fudge radius or the r_min factor, per FudgeMode.
		FudgeValue float64 `yaml:"fudgeValue"`

		// Detrend removes a least-squares plane before fitting.
		Detrend bool `yaml:"detrend"`

		// NormalizeRange rescales residuals to a bounded range.
		NormalizeRange bool `yaml:"normalizeRange"`
	} `yaml:"model"`

	// Solver selection and regularization.
	Solver struct {
		// UseSVD selects the regularized truncated-SVD solver instead of
		// Gauss-Jordan elimination.
		UseSVD bool `yaml:"useSVD"`

		// CutoffMode is "ratio", "count", or "variance".
		CutoffMode string `yaml:"cutoffMode"`

		// Cutoff is the truncation threshold; negative means dry-run
		// (export the spectrum and stop).
		Cutoff float64 `yaml:"cutoff"`

		// EigenFile, when set, receives the sorted singular-value table.
		EigenFile string `yaml:"eigenFile"`

		// EigenPlot, when set, receives a chart of the spectrum.
		EigenPlot string `yaml:"eigenPlot"`
	} `yaml:"solver"`

	// Input interpretation.
	Input struct {
		// Geographic treats x,y as lon,lat with flat-Earth distances in km.
		Geographic bool `yaml:"geographic"`

		// Weighting is "none", "sigma", or "weight".
		Weighting string `yaml:"weighting"`
	} `yaml:"input"`

	// Processing limits.
	Processing struct {
		// Workers bounds prediction parallelism; 0 means all CPUs.
		Workers int `yaml:"workers"`

		// MaxMatrixMB caps the dense system allocation in megabytes.
		MaxMatrixMB int `yaml:"maxMatrixMB"`
	} `yaml:"processing"`

	// Output controls reporting.
	Output struct {
		// Verbose enables diagnostic lines on stdout.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values, matching the
// defaults of the original tool.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Model.PoissonRatio = 0.25
	cfg.Model.FudgeMode = "relative"
	cfg.Model.FudgeValue = 0.01
	cfg.Model.Detrend = true
	cfg.Model.NormalizeRange = true

	cfg.Solver.CutoffMode = "ratio"

	cfg.Input.Weighting = "none"

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.MaxMatrixMB = 8192

	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
