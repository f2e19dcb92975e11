// Package config provides configuration loading and management for ellipsoidfit.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"ellipsoidfit/pkg/ellipsoid"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Fit parameters
	Fit struct {
		// Type selects the surface family, e.g. "Arbitrary" or "Sphere"
		Type ellipsoid.Type `yaml:"type"`

		// Coefficients includes the ten quadric coefficients in the report
		Coefficients bool `yaml:"coefficients"`

		// Eigen includes the canonicalized eigenvalues and axes in the report
		Eigen bool `yaml:"eigen"`
	} `yaml:"fit"`

	// Input parameters
	Input struct {
		// DedupeTolerance merges samples closer than this distance.
		// Zero removes exact duplicates only, a negative value disables it.
		DedupeTolerance float64 `yaml:"dedupeTolerance"`
	} `yaml:"input"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many files are fitted concurrently
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Report is the path of the YAML report, empty to skip it
		Report string `yaml:"report"`

		// MeshDir receives one STL surface per fitted file, empty to skip it
		MeshDir string `yaml:"meshDir"`

		// MeshStacks and MeshSlices set the mesh resolution
		MeshStacks int `yaml:"meshStacks"`
		MeshSlices int `yaml:"meshSlices"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Calibration parameters
	Calibration struct {
		// Enabled derives a hard/soft-iron correction from each fit
		Enabled bool `yaml:"enabled"`

		// Scale is the radius of the corrected sphere, 0 keeps the volume
		Scale float64 `yaml:"scale"`

		// OutputDir receives the corrected samples, empty to skip them
		OutputDir string `yaml:"outputDir"`
	} `yaml:"calibration"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Fit.Type = ellipsoid.Arbitrary
	cfg.Fit.Coefficients = false
	cfg.Fit.Eigen = true

	cfg.Input.DedupeTolerance = 0

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Report = "ellipsoidfit_report.yaml"
	cfg.Output.MeshStacks = 24
	cfg.Output.MeshSlices = 48
	cfg.Output.Verbose = true

	cfg.Calibration.Enabled = false
	cfg.Calibration.Scale = 0

	return cfg
}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks value ranges that the YAML schema cannot express
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("%w: numCores must be at least 1, got %d", ErrInvalid, c.Processing.NumCores)
	}
	if c.Output.MeshStacks < 2 || c.Output.MeshSlices < 3 {
		return fmt.Errorf("%w: mesh needs at least 2 stacks and 3 slices, got %d and %d",
			ErrInvalid, c.Output.MeshStacks, c.Output.MeshSlices)
	}
	if c.Calibration.Scale < 0 {
		return fmt.Errorf("%w: calibration scale must not be negative, got %g", ErrInvalid, c.Calibration.Scale)
	}
	if c.Calibration.Enabled && !c.Fit.Eigen {
		return fmt.Errorf("%w: calibration requires fit.eigen", ErrInvalid)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
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

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
