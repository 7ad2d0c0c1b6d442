package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/additivelens/additivelens/internal/server"
	"github.com/additivelens/additivelens/internal/worker"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes search and scan over HTTP:

  POST /v1/search          {"text": "..."} -> {"results": [...]}
  POST /v1/scan            multipart form, label photo in field "image"
  GET  /v1/catalog/stats   catalog cache diagnostics
  POST /v1/catalog/reload  reload the catalog from its source
  GET  /healthz            liveness

Clients are rate limited per address (rate_limiting.*). The catalog is
loaded once at startup so the first request does not pay for it.

Example:
  additivelens serve --addr :8080 --ocr openai
  additivelens serve --catalog file --catalog-path additives.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Output)

	a, err := newApp(cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// warm the catalog before taking traffic
	loadCtx, cancel := context.WithTimeout(ctx, cfg.Catalog.LoadTimeout+time.Second)
	snap, err := a.catalog.Get(loadCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog ready", "entries", len(snap.Entries), "origin", snap.Origin, "source", snap.Source)

	var limiter *worker.Limiter
	if cfg.RateLimiting.RequestsPerSecond > 0 {
		limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	}

	srv, err := server.New(cfg.Server, server.Deps{
		Searcher:      a.engine,
		Scanner:       a.pipeline,
		Catalog:       a.catalog,
		Limiter:       limiter,
		MaxImageBytes: cfg.OCR.MaxImageBytes,
		Version:       Version,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
