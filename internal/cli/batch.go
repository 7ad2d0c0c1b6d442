package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/additivelens/additivelens/internal/worker"
)

var (
	batchOut     string
	batchTimeout time.Duration
)

// BatchReport is the JSON document written by batch
type BatchReport struct {
	Input     string                 `json:"input"`
	StartedAt time.Time              `json:"started_at"`
	Duration  time.Duration          `json:"duration_ns"`
	Summary   worker.Summary         `json:"summary"`
	Results   []*worker.SearchResult `json:"results"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Search many label texts from a file in parallel",
	Long: `Batch searches every line of the input file as a separate label text:
- One text per line; blank lines and lines starting with # are skipped
- Duplicate lines are searched once
- Texts are searched in parallel with a configurable worker count
- Results are written as one JSON report, in input order

Example:
  additivelens batch labels.txt
  additivelens batch labels.txt --concurrency 8 --out reports/labels.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchOut, "out", "additivelens-batch.json", "output path for the JSON report")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Output)

	workers := cfg.Concurrency.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  AdditiveLens Batch Search\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", batchOut)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	a, err := newApp(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	started := time.Now()
	batch := worker.NewBatchSearcher(a.engine, workers)

	results, err := batch.SearchFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	report := BatchReport{
		Input:     file,
		StartedAt: started.UTC(),
		Duration:  time.Since(started),
		Summary:   worker.Summarize(results),
		Results:   results,
	}

	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ line %d: %v\n", r.Index+1, r.Error)
		} else if verbose {
			fmt.Fprintf(os.Stderr, "✓ line %d: %d matches\n", r.Index+1, len(r.Results))
		}
	}

	if err := writeJSONFile(batchOut, report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d texts\n", report.Summary.Texts)
	fmt.Fprintf(os.Stderr, "  Matched:   %d\n", report.Summary.Matched)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", report.Summary.Failed)
	fmt.Fprintf(os.Stderr, "  Elapsed:   %v\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOut)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
