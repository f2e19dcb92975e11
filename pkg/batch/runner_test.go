package batch

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"ellipsoidfit/internal/models"
	"ellipsoidfit/pkg/config"
	"ellipsoidfit/pkg/pointcloud"
)

// writeEllipsoid writes samples of an axis-aligned ellipsoid as text
func writeEllipsoid(t *testing.T, path string, center, radii [3]float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("# synthetic samples\n")
	for i := 1; i < 8; i++ {
		phi := math.Pi * float64(i) / 8
		for j := 0; j < 10; j++ {
			theta := 2 * math.Pi * float64(j) / 10
			fmt.Fprintf(&b, "%.17g %.17g %.17g\n",
				center[0]+radii[0]*math.Sin(phi)*math.Cos(theta),
				center[1]+radii[1]*math.Sin(phi)*math.Sin(theta),
				center[2]+radii[2]*math.Cos(phi))
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("Failed to write test input: %v", err)
	}
}

// writeHyperboloid writes samples of x² + y² - z² = 1
func writeHyperboloid(t *testing.T, path string) {
	t.Helper()
	var b strings.Builder
	for i := 0; i <= 6; i++ {
		z := -1 + 2*float64(i)/6
		rho := math.Sqrt(1 + z*z)
		for j := 0; j < 10; j++ {
			theta := 2 * math.Pi * float64(j) / 10
			fmt.Fprintf(&b, "%.17g %.17g %.17g\n", rho*math.Cos(theta), rho*math.Sin(theta), z)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("Failed to write test input: %v", err)
	}
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Processing.NumCores = 2
	cfg.Fit.Coefficients = true
	cfg.Output.Verbose = false
	cfg.Output.MeshDir = filepath.Join(dir, "meshes")
	cfg.Output.MeshStacks = 8
	cfg.Output.MeshSlices = 12
	cfg.Calibration.Enabled = true
	cfg.Calibration.Scale = 1
	cfg.Calibration.OutputDir = filepath.Join(dir, "calibrated")
	return cfg
}

// TestRunnerProcess runs a mixed batch and checks each report
func TestRunnerProcess(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	hyper := filepath.Join(dir, "hyper.txt")
	sparse := filepath.Join(dir, "sparse.txt")
	missing := filepath.Join(dir, "missing.txt")

	writeEllipsoid(t, good, [3]float64{1, 2, 3}, [3]float64{3, 2, 1})
	writeHyperboloid(t, hyper)
	if err := os.WriteFile(sparse, []byte("1 0 0\n0 1 0\n0 0 1\n1 0 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := NewRunner(&Params{
		Inputs: []string{good, hyper, sparse, missing},
		Config: testConfig(dir),
	})

	var mu sync.Mutex
	var seen []int
	runner.SetProgressCallback(func(completed, total int, source string) {
		mu.Lock()
		defer mu.Unlock()
		if total != 4 {
			t.Errorf("Expected total 4, got %d", total)
		}
		seen = append(seen, completed)
	})

	err := runner.Process()
	if err == nil {
		t.Fatal("Expected an error for the sparse and missing inputs")
	}
	if !strings.Contains(err.Error(), "missing.txt") || !strings.Contains(err.Error(), "sparse.txt") {
		t.Errorf("Error should name the failed files, got %v", err)
	}
	if len(seen) != 4 {
		t.Errorf("Expected 4 progress updates, got %v", seen)
	}

	reports := runner.Reports()
	if len(reports) != 4 {
		t.Fatalf("Expected 4 reports, got %d", len(reports))
	}

	t.Run("Ellipsoid", func(t *testing.T) {
		rep := reports[0]
		if rep.Source != good || rep.Error != "" {
			t.Fatalf("Unexpected report %+v", rep)
		}
		want := [3]float64{3, 2, 1}
		for k := 0; k < 3; k++ {
			if math.Abs(rep.Radii[k]-want[k]) > 1e-6 {
				t.Errorf("Radius %d: expected %g, got %g", k, want[k], rep.Radii[k])
			}
		}
		if len(rep.Coefficients) != 10 || len(rep.Eigenvalues) != 3 || len(rep.Eigenvectors) != 3 {
			t.Errorf("Expected coefficients and eigen outputs in the report")
		}
		if rep.Quality == nil || rep.Quality.N != rep.Points {
			t.Errorf("Expected quality over %d points, got %+v", rep.Points, rep.Quality)
		}
		if _, err := os.Stat(rep.Mesh); err != nil {
			t.Errorf("Expected mesh output: %v", err)
		}
		if rep.Calibration == nil {
			t.Fatal("Expected calibration in the report")
		}

		file, err := os.Open(rep.Calibration.Output)
		if err != nil {
			t.Fatalf("Expected calibrated samples: %v", err)
		}
		defer file.Close()
		corrected, err := pointcloud.ReadText(file)
		if err != nil {
			t.Fatalf("Failed to read calibrated samples: %v", err)
		}
		for _, p := range corrected {
			if n := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z); math.Abs(n-1) > 1e-6 {
				t.Fatalf("Calibrated sample %v has magnitude %g", p, n)
			}
		}
	})

	t.Run("Hyperboloid", func(t *testing.T) {
		rep := reports[1]
		if rep.Error != "" {
			t.Fatalf("A hyperboloid fit is not a failure, got %q", rep.Error)
		}
		nan := 0
		for _, r := range rep.Radii {
			if math.IsNaN(r) {
				nan++
			}
		}
		if nan == 0 {
			t.Errorf("Expected a NaN radius, got %v", rep.Radii)
		}
		if len(rep.Warnings) != 2 || rep.Mesh != "" || rep.Calibration != nil {
			t.Errorf("Expected mesh and calibration warnings only, got %+v", rep)
		}
	})

	t.Run("Failures", func(t *testing.T) {
		if reports[2].Error == "" || reports[2].Points != 3 {
			t.Errorf("Expected the sparse input to fail after removing a duplicate, got %+v", reports[2])
		}
		if reports[2].Duplicates != 1 {
			t.Errorf("Expected one duplicate, got %d", reports[2].Duplicates)
		}
		if reports[3].Error == "" {
			t.Error("Expected the missing input to fail")
		}
		if n := len(runner.Report().Failed()); n != 2 {
			t.Errorf("Expected 2 failed fits, got %d", n)
		}
	})

	t.Run("SaveReport", func(t *testing.T) {
		path := filepath.Join(dir, "out", "report.yaml")
		if err := runner.SaveReport(path); err != nil {
			t.Fatalf("Failed to save report: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), ".nan") {
			t.Error("Expected the NaN radius to be written as .nan")
		}

		var loaded models.Report
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			t.Fatalf("Report is not valid YAML: %v", err)
		}
		if len(loaded.Fits) != 4 || loaded.Fits[0].Radii != reports[0].Radii {
			t.Errorf("Reloaded report does not match: %+v", loaded.Fits)
		}
	})
}

// TestRunnerSequentialMatchesParallel verifies that the worker count does not change results
func TestRunnerSequentialMatchesParallel(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, fmt.Sprintf("set%d.txt", i))
		writeEllipsoid(t, path, [3]float64{float64(i), 0, -1}, [3]float64{2 + float64(i)/4, 1.5, 1})
		inputs = append(inputs, path)
	}

	run := func(cores int) []models.FitReport {
		cfg := config.DefaultConfig()
		cfg.Processing.NumCores = cores
		cfg.Output.Verbose = false
		runner := NewRunner(&Params{Inputs: inputs, Config: cfg})
		if err := runner.Process(); err != nil {
			t.Fatalf("Process failed with %d cores: %v", cores, err)
		}
		return runner.Reports()
	}

	seq, par := run(1), run(4)
	for i := range seq {
		if seq[i].Source != par[i].Source || seq[i].Center != par[i].Center || seq[i].Radii != par[i].Radii {
			t.Errorf("Report %d differs between 1 and 4 workers", i)
		}
	}
}

func TestOutputNames(t *testing.T) {
	got := outputNames([]string{"a/run.txt", "b/run.csv", "c/other.stl"})
	want := []string{"000_run", "001_run", "other"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Name %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
