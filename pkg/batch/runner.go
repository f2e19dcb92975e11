// Package batch fits many point files concurrently and collects a report.
package batch

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"ellipsoidfit/internal/models"
	"ellipsoidfit/internal/version"
	"ellipsoidfit/pkg/calibration"
	"ellipsoidfit/pkg/config"
	"ellipsoidfit/pkg/ellipsoid"
	"ellipsoidfit/pkg/pointcloud"
	"ellipsoidfit/pkg/stl"
)

// Params holds the inputs and settings of a batch run.
type Params struct {
	// Inputs are the point files to fit, see pointcloud.Load for formats
	Inputs []string

	// Config carries the fit, output and calibration settings
	Config *config.Config
}

// ProgressCallback is called after each file finishes
type ProgressCallback func(completed, total int, source string)

// Runner fits each input file independently. Files are distributed over
// Config.Processing.NumCores workers; the fitter holds no shared state, so
// every worker runs a complete fit on its own data.
type Runner struct {
	params   *Params
	progress ProgressCallback

	// outNames are the per-input base names for mesh and calibration output
	outNames []string

	reports []models.FitReport
}

// NewRunner creates a runner for params.
func NewRunner(params *Params) *Runner {
	return &Runner{
		params:   params,
		outNames: outputNames(params.Inputs),
	}
}

// SetProgressCallback sets a function to receive progress updates
func (r *Runner) SetProgressCallback(callback ProgressCallback) {
	r.progress = callback
}

// Process fits every input. A file that fails is recorded in its report and
// does not stop the others; the returned error lists all failed files.
func (r *Runner) Process() error {
	cfg := r.params.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(r.params.Inputs) == 0 {
		return fmt.Errorf("no input files")
	}
	for _, dir := range []string{cfg.Output.MeshDir, cfg.Calibration.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	total := len(r.params.Inputs)
	r.reports = make([]models.FitReport, total)

	type result struct {
		idx    int
		report models.FitReport
	}
	jobs := make(chan int)
	results := make(chan result)

	workers := min(cfg.Processing.NumCores, total)
	for w := 0; w < workers; w++ {
		go func() {
			for idx := range jobs {
				results <- result{idx: idx, report: r.fitFile(idx)}
			}
		}()
	}
	go func() {
		for idx := range r.params.Inputs {
			jobs <- idx
		}
		close(jobs)
	}()

	var errs []error
	for completed := 1; completed <= total; completed++ {
		res := <-results
		r.reports[res.idx] = res.report
		if res.report.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", res.report.Source, res.report.Error))
		}
		if r.progress != nil {
			r.progress(completed, total, res.report.Source)
		}
	}

	return errors.Join(errs...)
}

// Reports returns the per-file reports in input order
func (r *Runner) Reports() []models.FitReport {
	return r.reports
}

// Report returns the complete report document of the last run
func (r *Runner) Report() models.Report {
	return models.Report{
		Generated: time.Now().UTC(),
		Version:   version.GetVersion(),
		Fits:      r.reports,
	}
}

// SaveReport writes the report of the last run as YAML
func (r *Runner) SaveReport(path string) error {
	data, err := yaml.Marshal(r.Report())
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}

// fitFile loads, fits and post-processes a single input
func (r *Runner) fitFile(idx int) models.FitReport {
	cfg := r.params.Config
	path := r.params.Inputs[idx]
	report := models.FitReport{Source: path, Type: cfg.Fit.Type}

	points, err := pointcloud.Load(path)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	if tol := cfg.Input.DedupeTolerance; tol >= 0 {
		unique := pointcloud.Dedupe(points, tol)
		report.Duplicates = len(points) - len(unique)
		points = unique
	}
	report.Points = len(points)
	if len(points) < ellipsoid.MinPoints {
		report.Error = fmt.Sprintf("need at least %d distinct points, got %d", ellipsoid.MinPoints, len(points))
		return report
	}

	data := points.Matrix()
	needEigen := cfg.Fit.Eigen || cfg.Calibration.Enabled || cfg.Output.MeshDir != ""
	res := ellipsoid.FitDetailed(data, cfg.Fit.Type, ellipsoid.Outputs{Coefficients: true, Eigen: needEigen})

	report.Center = res.Center
	report.Radii = res.Radii
	quality := ellipsoid.Assess(data, res.Coefficients)
	report.Quality = &quality
	if cfg.Fit.Coefficients {
		report.Coefficients = append([]float64(nil), res.Coefficients.RawVector().Data...)
	}
	if cfg.Fit.Eigen {
		report.Eigenvalues = append([]float64(nil), res.Eigenvalues.RawVector().Data...)
		report.Eigenvectors = rows(res.Eigenvectors.T())
	}

	if cfg.Output.MeshDir != "" {
		if err := r.writeMesh(idx, res, &report); err != nil {
			r.warn(&report, "mesh: %v", err)
		}
	}
	if cfg.Calibration.Enabled {
		if err := r.calibrate(idx, data, res, &report); err != nil {
			r.warn(&report, "calibration: %v", err)
		}
	}

	if cfg.Output.Verbose {
		log.Printf("%s: %d points, center %.6g, radii %.6g, rmse %.3g",
			path, report.Points, res.Center, res.Radii, quality.RMSE)
	}
	return report
}

func (r *Runner) writeMesh(idx int, res ellipsoid.Result, report *models.FitReport) error {
	out := r.params.Config.Output
	triangles, err := stl.EllipsoidMesh(res.Center, res.Radii, res.Eigenvectors, out.MeshStacks, out.MeshSlices)
	if err != nil {
		return err
	}
	path := filepath.Join(out.MeshDir, r.outNames[idx]+".stl")
	if err := stl.SaveToSTL(path, triangles); err != nil {
		return err
	}
	report.Mesh = path
	return nil
}

func (r *Runner) calibrate(idx int, data *mat.Dense, res ellipsoid.Result, report *models.FitReport) error {
	cal := r.params.Config.Calibration
	corr, err := calibration.NewCorrection(res, cal.Scale)
	if err != nil {
		return err
	}
	report.Calibration = &models.Calibration{
		Offset:    corr.Offset,
		Transform: rows(corr.Transform),
		Scale:     corr.Scale,
	}
	if cal.OutputDir == "" {
		return nil
	}

	path := filepath.Join(cal.OutputDir, r.outNames[idx]+"_calibrated.txt")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create calibrated output: %w", err)
	}
	defer file.Close()
	if err := pointcloud.WriteText(file, corr.ApplyAll(data)); err != nil {
		return err
	}
	report.Calibration.Output = path
	return nil
}

func (r *Runner) warn(report *models.FitReport, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	report.Warnings = append(report.Warnings, msg)
	if r.params.Config.Output.Verbose {
		log.Printf("Warning: %s: %s", report.Source, msg)
	}
}

// rows copies a matrix into a slice of rows for serialization
func rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// outputNames derives a base name per input. Inputs sharing a base name are
// prefixed with their position so their outputs do not collide.
func outputNames(inputs []string) []string {
	count := make(map[string]int)
	names := make([]string, len(inputs))
	for i, in := range inputs {
		base := filepath.Base(in)
		names[i] = strings.TrimSuffix(base, filepath.Ext(base))
		count[names[i]]++
	}
	for i, name := range names {
		if count[name] > 1 {
			names[i] = fmt.Sprintf("%03d_%s", i, name)
		}
	}
	return names
}
