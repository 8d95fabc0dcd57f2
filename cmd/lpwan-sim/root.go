package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lpwan-sim",
	Short: "LPWAN coverage estimation toolkit",
	Long:  "lpwan-sim estimates LPWAN radio coverage over a 2D area and suggests gateway placements.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(placeCmd)
	rootCmd.AddCommand(serveCmd)
}
