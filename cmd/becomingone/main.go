// Package main provides the CLI entry point for the temporal coherence
// engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrhavens/becomingone/cmd/becomingone/commands"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "becomingone",
	Short: "Temporal coherence engine",
	Long: `A dual-rate oscillator engine for temporal coherence.

It provides:
  - Slow and fast oscillators tracking phase over sliding windows
  - Resonance and collapse detection per oscillator
  - Synchronization of both resonances into one combined signal
  - Signature memory with decay, recall, and consolidation`,
	Version: version,
}

func main() {
	rootCmd.AddCommand(commands.SimulateCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.MemoryCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
