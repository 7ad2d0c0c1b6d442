package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/additivelens/additivelens/internal/catalog"
	"github.com/additivelens/additivelens/internal/model"
	"github.com/additivelens/additivelens/internal/store"
)

var (
	catalogJSON  bool
	importBucket string
	importDBPath string
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and import the additive catalog",
	Long: `Inspect the catalog the search engine would load, or import a YAML/JSON
catalog document into a bolt database for use with --catalog bolt.`,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List catalog entries",
	Long:  `Load the catalog through the cache (with its fallbacks) and list every entry.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if catalogJSON {
			return writeJSON(out, snap.Entries)
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tHAZARD\tALIASES")
		for _, e := range snap.Entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", e.ID, e.Name, e.HazardLevel, len(e.Aliases))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "\n%d entries from %s (%s)\n", len(snap.Entries), snap.Source, snap.Origin)
		return nil
	},
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	Long:  `Load the catalog and print where it came from and how entries spread over hazard levels.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}

		stats := summarizeCatalog(snap)
		if catalogJSON {
			return writeJSON(cmd.OutOrStdout(), stats)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Source:   %s\n", stats.Source)
		fmt.Fprintf(out, "Origin:   %s\n", stats.Origin)
		fmt.Fprintf(out, "Entries:  %d\n", stats.Entries)
		fmt.Fprintf(out, "Aliases:  %d\n", stats.Aliases)
		fmt.Fprintf(out, "Hazard:   high %d, medium %d, low %d, unknown %d\n",
			stats.ByHazard[string(model.HazardHigh)], stats.ByHazard[string(model.HazardMedium)],
			stats.ByHazard[string(model.HazardLow)], stats.ByHazard["unknown"])
		return nil
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a YAML/JSON catalog into a bolt database",
	Long: `Read a catalog document, validate it the way the loader does, and write it
to a bolt database, replacing the bucket contents.

Example:
  additivelens catalog import additives.yaml --db additives.db
  additivelens search "구연산" --catalog bolt --catalog-path additives.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importDBPath == "" {
			return fmt.Errorf("--db is required")
		}

		entries, err := store.NewFileSource(args[0]).FetchAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		entries = catalog.Sanitize(entries, newLogger(cfg.Output))
		if len(entries) == 0 {
			return catalog.ErrEmptyCatalog
		}

		if err := store.WriteBolt(importDBPath, importBucket, entries); err != nil {
			return fmt.Errorf("write bolt: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d entries into %s (bucket %s)\n", len(entries), importDBPath, importBucket)
		return nil
	},
}

// CatalogSummary is printed by catalog stats
type CatalogSummary struct {
	Source   string         `json:"source"`
	Origin   string         `json:"origin"`
	Version  uint64         `json:"version"`
	Entries  int            `json:"entries"`
	Aliases  int            `json:"aliases"`
	ByHazard map[string]int `json:"by_hazard"`
}

func summarizeCatalog(snap *catalog.Snapshot) CatalogSummary {
	s := CatalogSummary{
		Source:   snap.Source,
		Origin:   string(snap.Origin),
		Version:  snap.Version,
		Entries:  len(snap.Entries),
		ByHazard: make(map[string]int),
	}
	for _, e := range snap.Entries {
		s.Aliases += len(e.Aliases)
		level := string(e.HazardLevel)
		if !e.HazardLevel.Valid() {
			level = "unknown"
		}
		s.ByHazard[level]++
	}
	return s
}

func loadSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := newApp(cfg, newLogger(cfg.Output), false)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Catalog.LoadTimeout+time.Second)
	defer cancel()

	return a.catalog.Get(ctx)
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogStatsCmd)
	catalogCmd.AddCommand(catalogImportCmd)

	catalogCmd.PersistentFlags().BoolVar(&catalogJSON, "json", false, "print as JSON")
	catalogImportCmd.Flags().StringVar(&importDBPath, "db", "", "bolt database path")
	catalogImportCmd.Flags().StringVar(&importBucket, "bucket", store.DefaultBucket, "bolt bucket name")
}
