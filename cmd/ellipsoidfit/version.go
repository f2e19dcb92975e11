package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ellipsoidfit/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ellipsoidfit", version.GetFullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
