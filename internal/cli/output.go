package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/additivelens/additivelens/internal/model"
)

// writeJSON writes v as indented JSON to w
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// writeJSONFile writes v as indented JSON to path, replacing it atomically
func writeJSONFile(path string, v any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".additivelens-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := writeJSON(tmp, v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode JSON: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// renderResults prints matches as an aligned table
func renderResults(w io.Writer, results []model.MatchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No additives found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tHAZARD\tMATCH\tSCORE\tKEYWORD")
	for i, r := range results {
		hazard := string(r.HazardLevel)
		if hazard == "" {
			hazard = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			i+1, r.ID, r.Name, hazard, r.MatchType, r.MatchScore, r.MatchedTerm)
	}
	_ = tw.Flush()
}

// renderReport prints a scan report summary followed by its matches
func renderReport(w io.Writer, report *model.ScanReport, showText bool) {
	fmt.Fprintf(w, "Scan %s\n", report.ID)
	if report.OCR.Provider != "" {
		fmt.Fprintf(w, "  OCR:      %s", report.OCR.Provider)
		if report.OCR.Model != "" {
			fmt.Fprintf(w, "/%s", report.OCR.Model)
		}
		fmt.Fprintf(w, " (%v, %d bytes)\n", report.OCR.Duration.Round(1e6), report.OCR.Bytes)
	}
	if hazard := report.HighestHazard(); hazard != "" {
		fmt.Fprintf(w, "  Highest:  %s\n", hazard)
	}
	if report.Error != "" {
		fmt.Fprintf(w, "  Error:    %s\n", report.Error)
	}
	if showText && report.Text != "" {
		fmt.Fprintf(w, "\n%s\n", report.Text)
	}
	fmt.Fprintln(w)
	renderResults(w, report.Results)
}
