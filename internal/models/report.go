package models

import (
	"time"

	"ellipsoidfit/pkg/ellipsoid"
)

// FitReport describes the fit of a single input file
type FitReport struct {
	// Source is the input file the samples were read from
	Source string `yaml:"source"`

	// Type is the surface family that was fitted
	Type ellipsoid.Type `yaml:"type"`

	// Points is the number of samples used after duplicate removal
	Points int `yaml:"points"`

	// Duplicates is the number of samples dropped as near-duplicates
	Duplicates int `yaml:"duplicates,omitempty"`

	// Center and Radii are the fitted parameters. Radii may hold NaN,
	// written as .nan, when the surface is not an ellipsoid
	Center [3]float64 `yaml:"center,flow"`
	Radii  [3]float64 `yaml:"radii,flow"`

	// Coefficients are the quadric coefficients A..J, when requested
	Coefficients []float64 `yaml:"coefficients,flow,omitempty"`

	// Eigenvalues and Eigenvectors (one row per axis), when requested
	Eigenvalues  []float64   `yaml:"eigenvalues,flow,omitempty"`
	Eigenvectors [][]float64 `yaml:"eigenvectors,omitempty"`

	// Quality holds the algebraic residual statistics
	Quality *ellipsoid.Quality `yaml:"quality,omitempty"`

	// Calibration is the derived sensor correction, when enabled
	Calibration *Calibration `yaml:"calibration,omitempty"`

	// Mesh is the path of the written STL surface
	Mesh string `yaml:"mesh,omitempty"`

	// Warnings lists non-fatal problems, such as a mesh that could not be built
	Warnings []string `yaml:"warnings,omitempty"`

	// Error is set when the file could not be fitted at all
	Error string `yaml:"error,omitempty"`
}

// Calibration is the hard/soft-iron correction derived from a fit
type Calibration struct {
	Offset    [3]float64  `yaml:"offset,flow"`
	Transform [][]float64 `yaml:"transform"`
	Scale     float64     `yaml:"scale"`

	// Output is the path of the corrected samples, if they were written
	Output string `yaml:"output,omitempty"`
}

// Report is the document written for a batch run
type Report struct {
	Generated time.Time   `yaml:"generated"`
	Version   string      `yaml:"version"`
	Fits      []FitReport `yaml:"fits"`
}

// Failed returns the reports of files that could not be fitted
func (r Report) Failed() []FitReport {
	var failed []FitReport
	for _, f := range r.Fits {
		if f.Error != "" {
			failed = append(failed, f)
		}
	}
	return failed
}
