package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "slabctl",
	Short: "Exercise and measure the bmslab fixed-size allocator",
	Long: `slabctl drives the bmslab concurrent fixed-size allocator from the
command line. It can measure alloc/free throughput under configurable
parallelism and run sustained stress workloads that verify the allocator's
slot-exclusivity invariant while pages expand and shrink.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}
