package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrhavens/becomingone/internal/infrastructure/memory"
	"github.com/mrhavens/becomingone/internal/shared"
)

// Memory command flags
var (
	memoryPath    string
	memoryArchive string
	archiveTier   string
	archiveSince  time.Duration
	archiveLimit  int
)

// MemoryCmd is the parent command for memory operations.
var MemoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and maintain the signature memory",
	Long: `Commands for working with a persisted memory document:
  - stats:       signature and echo counts per tier
  - consolidate: run one decay/strengthen/prune pass and save
  - export:      print the full document as JSON
  - archive:     query the SQLite signature archive`,
}

// loadStore opens the memory document at memoryPath. An absent file is a
// valid empty store.
func loadStore() (*memory.Store, error) {
	store, err := memory.NewStore(memory.DefaultConfig())
	if err != nil {
		return nil, err
	}
	store.Bind(staticSource{})
	store.Load(memoryPath)
	return store, nil
}

// staticSource satisfies the binding requirement for offline maintenance;
// nothing is encoded from it.
type staticSource struct{}

func (staticSource) LastState() shared.TemporalState { return shared.TemporalState{} }
func (staticSource) Coherence() float64              { return 0 }

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print signature and echo counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}

		stats := store.Stats()
		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var memoryConsolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run one consolidation pass and save the document",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}

		report, err := store.Consolidate()
		if err != nil {
			return err
		}
		fmt.Printf("before=%d after=%d strengthened=%d pruned=%d echoed=%d\n",
			report.Before, report.After, report.Strengthened, report.Pruned, report.Echoed)

		return store.Save(memoryPath)
	},
}

var memoryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print every stored signature as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}

		signatures := store.Recent(100 * 365 * 24 * time.Hour)
		for _, sig := range signatures {
			line, err := json.Marshal(sig)
			if err != nil {
				return err
			}
			fmt.Println(string(line))
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d signatures\n", len(signatures))
		return nil
	},
}

var memoryArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Query the SQLite signature archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive := memory.NewArchive(memoryArchive)
		if err := archive.Initialize(); err != nil {
			return err
		}
		defer archive.Close()

		query := memory.ArchiveQuery{
			Tier:  archiveTier,
			Limit: archiveLimit,
		}
		if archiveSince > 0 {
			query.Since = time.Now().UTC().Add(-archiveSince)
		}

		results, err := archive.Query(query)
		if err != nil {
			return err
		}
		for _, result := range results {
			line, err := json.Marshal(result)
			if err != nil {
				return err
			}
			fmt.Println(string(line))
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d archived signatures\n", len(results), archive.Count())
		return nil
	},
}

func init() {
	MemoryCmd.PersistentFlags().StringVar(&memoryPath, "path", "becomingone-memory.json", "memory document path")

	memoryArchiveCmd.Flags().StringVar(&memoryArchive, "db", "becomingone-archive.db", "archive database path")
	memoryArchiveCmd.Flags().StringVar(&archiveTier, "tier", "", "filter by tier name")
	memoryArchiveCmd.Flags().DurationVar(&archiveSince, "since", 0, "only signatures newer than this age")
	memoryArchiveCmd.Flags().IntVar(&archiveLimit, "limit", 50, "maximum results")

	MemoryCmd.AddCommand(memoryStatsCmd)
	MemoryCmd.AddCommand(memoryConsolidateCmd)
	MemoryCmd.AddCommand(memoryExportCmd)
	MemoryCmd.AddCommand(memoryArchiveCmd)
}
