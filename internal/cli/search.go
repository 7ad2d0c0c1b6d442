package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchJSON     bool
	searchFile     string
	searchKeywords bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [text...]",
	Short: "Find additives in ingredient label text",
	Long: `Search extracts candidate keywords from the text and matches them against
the additive catalog with exact, normalized, partial and fuzzy matching.

The text is read from the arguments, from --file, or from stdin when
neither is given (use "-" to force stdin).

Example:
  additivelens search "원재료명: 정제수, 구연산, 안식향산나트륨(보존료)"
  additivelens search --file label.txt --json
  tesseract label.png - -l kor | additivelens search`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	searchCmd.Flags().StringVarP(&searchFile, "file", "f", "", "read text from file")
	searchCmd.Flags().BoolVar(&searchKeywords, "keywords", false, "also print the extracted keywords")
}

func runSearch(cmd *cobra.Command, args []string) error {
	text, err := readSearchText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Output)

	a, err := newApp(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.ScanTimeout+cfg.Catalog.LoadTimeout)
	defer cancel()

	results := a.engine.Search(ctx, text)
	out := cmd.OutOrStdout()

	if searchJSON {
		return writeJSON(out, map[string]any{"results": results})
	}

	if searchKeywords {
		fmt.Fprintf(out, "Keywords: %s\n\n", strings.Join(a.engine.Keywords(text), ", "))
	}
	renderResults(out, results)
	return nil
}

// readSearchText picks the input source: --file, arguments, then stdin
func readSearchText(stdin io.Reader, args []string) (string, error) {
	switch {
	case searchFile != "":
		data, err := os.ReadFile(searchFile)
		if err != nil {
			return "", fmt.Errorf("read text: %w", err)
		}
		return string(data), nil

	case len(args) > 0 && !(len(args) == 1 && args[0] == "-"):
		return joinArgs(args), nil

	default:
		data, err := io.ReadAll(io.LimitReader(stdin, 16<<20))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", errNoInput
		}
		return string(data), nil
	}
}
