package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	scanJSON     bool
	scanOut      string
	scanShowText bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Read a label photo with OCR and find its additives",
	Long: `Scan sends a label photo to the configured vision model, then searches the
recognized text for additives. OCR and search share one deadline
(--timeout); when OCR fails the report carries the error and no results.

Example:
  additivelens scan label.jpg --ocr openai
  additivelens scan label.png --ocr ollama --ocr-model llama3.2-vision --text
  additivelens scan label.webp --out reports/label.json`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the report as JSON")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "also write the JSON report to this path")
	scanCmd.Flags().BoolVar(&scanShowText, "text", false, "print the recognized text")
	scanCmd.Flags().Duration("timeout", 8*time.Second, "deadline for OCR plus search")

	_ = viper.BindPFlag("server.scan_timeout", scanCmd.Flags().Lookup("timeout"))
}

func runScan(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.OCR.Provider == "" {
		return fmt.Errorf("no OCR provider configured (use --ocr or ocr.provider)")
	}
	logger := newLogger(cfg.Output)

	a, err := newApp(cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s (%d bytes)\n", args[0], len(data))
		fmt.Fprintf(os.Stderr, "OCR:      %s\n", a.pipeline.Provider())
		fmt.Fprintf(os.Stderr, "Timeout:  %v\n\n", cfg.Server.ScanTimeout)
	}

	report := a.pipeline.ScanImage(cmd.Context(), data, "")

	if scanOut != "" {
		if err := writeJSONFile(scanOut, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", scanOut)
		}
	}

	if scanJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	renderReport(cmd.OutOrStdout(), report, scanShowText)
	return nil
}
