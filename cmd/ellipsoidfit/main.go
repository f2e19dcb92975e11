package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ellipsoidfit/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ellipsoidfit",
	Short: "Least-squares ellipsoid fitting for 3D point sets",
	Long: `ellipsoidfit fits ellipsoids, spheres and axis-aligned variants to 3D samples.
It reads whitespace separated text, CSV and STL files, reports center, radii and
fit quality, and can derive a hard/soft-iron correction for magnetometer data.`,
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
