// Package main is the entry point for the pillchecker CLI: the HTTP API
// server plus offline extraction and scan commands.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pillchecker",
	Short: "Structure medication label text into titles, dosages and prescription details",
	Long: `pillchecker reads photographed medication labels, links the recognized
text to biomedical concepts and extracts a title, active ingredients,
dosage, frequency, timing and expiry date.

Run "pillchecker serve" for the HTTP API, or use "extract" and "scan"
to process text and images from the command line.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
