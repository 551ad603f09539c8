// Package commands provides CLI command implementations.
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	becomingone "github.com/mrhavens/becomingone/pkg/becomingone"
)

// Simulate command flags
var (
	simulateEvents   int
	simulateSpacing  time.Duration
	simulateInput    string
	simulateJSON     bool
	simulateMemPath  string
	simulateEvery    int
)

// SimulateCmd feeds a synthetic stream through the engine and prints the
// coherence trajectory.
var SimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Feed a synthetic input stream and print the coherence trajectory",
	Long: `Feed a synthetic input stream through the slow/fast oscillator
pair, synchronizing at a fixed cadence, and print each tick's combined
coherence. A steady stream should drive coherence toward 1 and collapse
both oscillators.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateEvery < 1 {
			return fmt.Errorf("--sync-every must be at least 1, got %d", simulateEvery)
		}

		config := becomingone.DefaultConfig()
		config.MemoryPath = simulateMemPath

		engine, err := becomingone.New(config, becomingone.NewTextEncoder())
		if err != nil {
			return err
		}
		defer engine.Close()

		base := time.Now().UTC()
		for i := 0; i < simulateEvents; i++ {
			timestamp := base.Add(time.Duration(i) * simulateSpacing)
			if _, err := engine.IngestAt(simulateInput, timestamp); err != nil {
				return err
			}

			if (i+1)%simulateEvery != 0 {
				continue
			}
			record := engine.Synchronize()
			if simulateJSON {
				line, err := json.Marshal(record)
				if err != nil {
					return err
				}
				fmt.Println(string(line))
			} else {
				fmt.Printf("event %4d  coherence %.4f  aligned=%v  collapsed=%v\n",
					i+1, record.CombinedCoherence, record.Aligned, record.Collapsed)
			}
		}

		final := engine.Synchronize()
		witnessed, contribution, err := engine.Witness("simulation")
		if err != nil {
			return err
		}
		if !simulateJSON {
			fmt.Printf("\nfinal: coherence %.4f, phase difference %.4f, collapsed=%v\n",
				final.CombinedCoherence, final.PhaseDifference, final.Collapsed)
			stats := engine.Memory().Stats()
			fmt.Printf("memory: %d signatures, %d echoes\n", stats.Signatures, stats.Echoes)
			fmt.Printf("witnessed: coherence %.4f, contribution %.6f, %d meta-observations\n",
				witnessed.Coherence, contribution, len(witnessed.MetaObservations))
		}

		if simulateMemPath != "" {
			if err := engine.Memory().Save(simulateMemPath); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "memory saved to %s\n", simulateMemPath)
		}
		return nil
	},
}

func init() {
	SimulateCmd.Flags().IntVarP(&simulateEvents, "events", "n", 50, "number of synthetic events")
	SimulateCmd.Flags().DurationVar(&simulateSpacing, "spacing", time.Second, "virtual time between events")
	SimulateCmd.Flags().StringVar(&simulateInput, "input", "steady signal", "text fed on every event")
	SimulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "emit JSON lines instead of text")
	SimulateCmd.Flags().StringVar(&simulateMemPath, "memory", "", "save the memory document here on exit")
	SimulateCmd.Flags().IntVar(&simulateEvery, "sync-every", 5, "synchronize after every N events")
}
