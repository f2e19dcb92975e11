package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"ellipsoidfit/internal/models"
	"ellipsoidfit/pkg/batch"
	"ellipsoidfit/pkg/config"
	"ellipsoidfit/pkg/ellipsoid"
)

var (
	fitType         string
	fitCores        int
	fitReport       string
	fitMeshDir      string
	fitCoefficients bool
	fitEigen        bool
	fitDedupe       float64
	fitCalibrate    bool
	fitScale        float64
	fitCalibrated   string
	fitQuiet        bool
)

var fitCmd = &cobra.Command{
	Use:   "fit [files...]",
	Short: "Fit an ellipsoid to each input file",
	Long: `Fit one ellipsoid per input file and write a YAML report.
Flags override the matching values of the configuration file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFit,
}

func init() {
	rootCmd.AddCommand(fitCmd)

	flags := fitCmd.Flags()
	flags.StringVarP(&fitType, "type", "t", "", "Fit type: "+typeList())
	flags.IntVarP(&fitCores, "cores", "j", 0, "Number of files fitted concurrently")
	flags.StringVarP(&fitReport, "report", "o", "", "Report path, empty string to skip")
	flags.StringVar(&fitMeshDir, "mesh", "", "Directory for fitted surface STL meshes")
	flags.BoolVar(&fitCoefficients, "coefficients", false, "Include quadric coefficients in the report")
	flags.BoolVar(&fitEigen, "eigen", true, "Include eigenvalues and principal axes in the report")
	flags.Float64Var(&fitDedupe, "dedupe", 0, "Merge samples closer than this distance, negative to disable")
	flags.BoolVar(&fitCalibrate, "calibrate", false, "Derive a hard/soft-iron correction from each fit")
	flags.Float64Var(&fitScale, "scale", 0, "Radius of the calibrated sphere, 0 keeps the volume")
	flags.StringVar(&fitCalibrated, "calibrated-dir", "", "Directory for corrected samples")
	flags.BoolVarP(&fitQuiet, "quiet", "q", false, "Only print the summary")
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := applyFitFlags(cmd, cfg); err != nil {
		return err
	}

	runner := batch.NewRunner(&batch.Params{Inputs: args, Config: cfg})
	if cfg.Output.Verbose {
		runner.SetProgressCallback(func(completed, total int, source string) {
			fmt.Printf("[%d/%d] %s\n", completed, total, source)
		})
	}

	start := time.Now()
	procErr := runner.Process()
	elapsed := time.Since(start)

	for _, rep := range runner.Reports() {
		printSummary(rep)
	}
	fmt.Printf("\nFitted %d file(s) in %.3f seconds using %d worker(s)\n",
		len(args), elapsed.Seconds(), min(cfg.Processing.NumCores, len(args)))

	if cfg.Output.Report != "" && runner.Reports() != nil {
		if err := runner.SaveReport(cfg.Output.Report); err != nil {
			return err
		}
		fmt.Printf("Report saved to: %s\n", cfg.Output.Report)
	}
	return procErr
}

// applyFitFlags copies explicitly set flags over the loaded configuration
func applyFitFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("type") {
		t, err := ellipsoid.ParseType(fitType)
		if err != nil {
			return err
		}
		cfg.Fit.Type = t
	}
	if flags.Changed("cores") {
		cfg.Processing.NumCores = fitCores
	}
	if flags.Changed("report") {
		cfg.Output.Report = fitReport
	}
	if flags.Changed("mesh") {
		cfg.Output.MeshDir = fitMeshDir
	}
	if flags.Changed("coefficients") {
		cfg.Fit.Coefficients = fitCoefficients
	}
	if flags.Changed("eigen") {
		cfg.Fit.Eigen = fitEigen
	}
	if flags.Changed("dedupe") {
		cfg.Input.DedupeTolerance = fitDedupe
	}
	if flags.Changed("calibrate") {
		cfg.Calibration.Enabled = fitCalibrate
	}
	if flags.Changed("scale") {
		cfg.Calibration.Scale = fitScale
	}
	if flags.Changed("calibrated-dir") {
		cfg.Calibration.OutputDir = fitCalibrated
	}
	if fitQuiet {
		cfg.Output.Verbose = false
	}
	return cfg.Validate()
}

func printSummary(rep models.FitReport) {
	fmt.Printf("\n%s\n", rep.Source)
	if rep.Error != "" {
		fmt.Printf("  failed: %s\n", rep.Error)
		return
	}
	fmt.Printf("  type:    %s, %d points", rep.Type, rep.Points)
	if rep.Duplicates > 0 {
		fmt.Printf(" (%d duplicates removed)", rep.Duplicates)
	}
	fmt.Println()
	fmt.Printf("  center:  %12.6f %12.6f %12.6f\n", rep.Center[0], rep.Center[1], rep.Center[2])
	fmt.Printf("  radii:   %12.6f %12.6f %12.6f\n", rep.Radii[0], rep.Radii[1], rep.Radii[2])
	for _, r := range rep.Radii {
		if math.IsNaN(r) {
			fmt.Println("  note:    surface is not an ellipsoid")
			break
		}
	}
	if rep.Quality != nil {
		fmt.Printf("  rmse:    %.6g (max %.6g)\n", rep.Quality.RMSE, rep.Quality.MaxAbs)
	}
	if rep.Mesh != "" {
		fmt.Printf("  mesh:    %s\n", rep.Mesh)
	}
	if rep.Calibration != nil && rep.Calibration.Output != "" {
		fmt.Printf("  calibrated samples: %s\n", rep.Calibration.Output)
	}
	for _, w := range rep.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func typeList() string {
	var s string
	for i, t := range ellipsoid.Types() {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s
}
