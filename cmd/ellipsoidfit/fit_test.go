package main

import (
	"testing"

	"ellipsoidfit/pkg/config"
	"ellipsoidfit/pkg/ellipsoid"
)

func TestApplyFitFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.MeshDir = "from-file"

	if err := fitCmd.Flags().Parse([]string{"--type", "sphere", "--cores", "2", "--calibrate", "--scale", "1.5"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}
	if err := applyFitFlags(fitCmd, cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Fit.Type != ellipsoid.Sphere {
		t.Errorf("Expected Sphere, got %v", cfg.Fit.Type)
	}
	if cfg.Processing.NumCores != 2 {
		t.Errorf("Expected 2 cores, got %d", cfg.Processing.NumCores)
	}
	if !cfg.Calibration.Enabled || cfg.Calibration.Scale != 1.5 {
		t.Errorf("Unexpected calibration settings %+v", cfg.Calibration)
	}
	if cfg.Output.MeshDir != "from-file" {
		t.Errorf("Unset flag overrode the configuration: %q", cfg.Output.MeshDir)
	}
}
