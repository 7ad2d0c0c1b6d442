package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/additivelens/additivelens/internal/cache"
	"github.com/additivelens/additivelens/internal/catalog"
	"github.com/additivelens/additivelens/internal/model"
	"github.com/additivelens/additivelens/internal/ocr"
	"github.com/additivelens/additivelens/internal/pipeline"
	"github.com/additivelens/additivelens/internal/search"
	"github.com/additivelens/additivelens/internal/store"
	"github.com/additivelens/additivelens/internal/worker"
)

// app is the wired object graph shared by the commands
type app struct {
	cfg      *model.Config
	logger   *slog.Logger
	source   catalog.Source
	catalog  *catalog.Cache
	engine   *search.Engine
	pipeline *pipeline.Pipeline
	watcher  *catalog.Watcher
}

// newApp builds the catalog, search engine and scan pipeline described
// by cfg. withOCR selects whether a recognizer is created.
func newApp(cfg *model.Config, logger *slog.Logger, withOCR bool) (*app, error) {
	source, err := store.New(cfg.Catalog, logger)
	if err != nil {
		return nil, fmt.Errorf("catalog source: %w", err)
	}

	policy, err := catalog.ParsePolicy(cfg.Catalog.Policy)
	if err != nil {
		closeSource(source)
		return nil, err
	}

	cat := catalog.NewCache(source, catalog.Options{
		Policy:        policy,
		TTL:           cfg.Catalog.TTL,
		LoadTimeout:   cfg.Catalog.LoadTimeout,
		RetryInterval: cfg.Catalog.RetryInterval,
		Snapshots:     cache.New(cfg.Cache),
		SnapshotKey:   cache.Key("catalog", source.Name(), store.Location(cfg.Catalog)),
		Logger:        logger,
	})

	a := &app{
		cfg:     cfg,
		logger:  logger,
		source:  source,
		catalog: cat,
	}

	if policy == catalog.PolicyWatch {
		fs, ok := source.(*store.FileSource)
		if !ok {
			a.Close()
			return nil, fmt.Errorf("catalog policy %s requires source %s", policy, store.KindFile)
		}
		w, err := catalog.Watch(fs.Path(), cat, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("watch catalog: %w", err)
		}
		a.watcher = w
	}

	a.engine, err = search.NewEngine(cat, cfg.Search, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("search engine: %w", err)
	}

	var recognizer ocr.Recognizer
	if withOCR {
		recognizer, err = ocr.New(cfg.OCR)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("OCR provider: %w", err)
		}
	}

	var limiter *worker.Limiter
	if cfg.OCR.RateLimit > 0 {
		limiter = worker.NewLimiter(cfg.OCR.RateLimit, 1)
	}

	a.pipeline = pipeline.New(recognizer, a.engine, pipeline.Options{
		Timeout:       cfg.Server.ScanTimeout,
		MaxImageBytes: cfg.OCR.MaxImageBytes,
		Attempts:      cfg.OCR.Attempts,
		Limiter:       limiter,
		Logger:        logger,
	})

	return a, nil
}

// Close stops the watcher and releases the catalog source
func (a *app) Close() {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("stop catalog watcher", "error", err)
		}
	}
	closeSource(a.source)
}

func closeSource(source catalog.Source) {
	if c, ok := source.(io.Closer); ok {
		_ = c.Close()
	}
}

// errNoInput is returned when a command has nothing to search
var errNoInput = errors.New("no input text")

// joinArgs turns positional arguments into one search text
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
