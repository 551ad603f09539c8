package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrhavens/becomingone/internal/infrastructure/adapters"
	becomingone "github.com/mrhavens/becomingone/pkg/becomingone"
)

// Run command flags
var (
	runMemPath     string
	runArchivePath string
	runVerbose     bool
)

// RunCmd runs the engine as a daemon reading input lines from stdin.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine on stdin until interrupted",
	Long: `Run the engine as a long-lived process. Each stdin line is one
input event; the synchronization driver and memory consolidation run in
the background. SIGINT or SIGTERM stops the engine cleanly, consolidating
and saving memory before exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config := becomingone.DefaultConfig()
		config.MemoryPath = runMemPath
		config.ArchivePath = runArchivePath

		sinks := []becomingone.Option{}
		if runVerbose {
			sinks = append(sinks, becomingone.WithSink(adapters.NewStreamSink(os.Stderr)))
		}

		engine, err := becomingone.New(config, becomingone.NewTextEncoder(), sinks...)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		engine.Start(ctx)

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		fmt.Fprintln(os.Stderr, "engine running; reading events from stdin")
		for {
			select {
			case sig := <-signals:
				fmt.Fprintf(os.Stderr, "received %s, stopping\n", sig)
				return engine.Close()
			case line, ok := <-lines:
				if !ok {
					return engine.Close()
				}
				if line == "" {
					continue
				}
				// Bad lines are skipped at the encoder boundary.
				engine.Ingest(line)
			}
		}
	},
}

func init() {
	RunCmd.Flags().StringVar(&runMemPath, "memory", "becomingone-memory.json", "memory document path")
	RunCmd.Flags().StringVar(&runArchivePath, "archive", "", "SQLite signature archive path")
	RunCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print each sync record to stderr")
}
