// Package store implements the live catalog sources: YAML/JSON files, an
// embedded bbolt database, a Postgres table and an Azure blob document.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/additivelens/additivelens/internal/catalog"
	"github.com/additivelens/additivelens/internal/model"
)

var (
	// ErrNotFound is returned when the configured catalog does not exist
	ErrNotFound = errors.New("catalog not found")
	// ErrUnknownSource is returned for an unsupported catalog.source
	ErrUnknownSource = errors.New("unknown catalog source")
)

// Source kinds accepted in catalog.source
const (
	KindFile     = "file"
	KindBolt     = "bolt"
	KindPostgres = "postgres"
	KindBlob     = "blob"
	KindFallback = "fallback"
)

// maxDocumentBytes bounds catalog documents read from files and blobs
const maxDocumentBytes = 32 << 20

// New creates the catalog source described by cfg
func New(cfg model.CatalogConfig, logger *slog.Logger) (catalog.Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(cfg.Source) {
	case KindFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("catalog.path is required for source %s", KindFile)
		}
		return NewFileSource(cfg.Path), nil

	case KindBolt:
		if cfg.Path == "" {
			return nil, fmt.Errorf("catalog.path is required for source %s", KindBolt)
		}
		return NewBoltSource(cfg.Path, cfg.Bucket), nil

	case KindPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("catalog.dsn is required for source %s", KindPostgres)
		}
		src, err := NewPostgresSource(cfg.DSN, cfg.Table, logger)
		if err != nil {
			return nil, err
		}
		return src, nil

	case KindBlob:
		src, err := NewBlobSource(cfg.Blob, logger)
		if err != nil {
			return nil, err
		}
		return src, nil

	case KindFallback, "":
		return catalog.NewFallbackSource(), nil

	default:
		return nil, fmt.Errorf("%w: %s (supported: %s, %s, %s, %s, %s)",
			ErrUnknownSource, cfg.Source, KindFile, KindBolt, KindPostgres, KindBlob, KindFallback)
	}
}

// Location returns a stable description of where cfg reads from, used to key
// the last-known-good snapshot
func Location(cfg model.CatalogConfig) string {
	switch strings.ToLower(cfg.Source) {
	case KindFile:
		return cfg.Path
	case KindBolt:
		return cfg.Path + "#" + cfg.Bucket
	case KindPostgres:
		return cfg.Table
	case KindBlob:
		return cfg.Blob.Container + "/" + cfg.Blob.Key
	default:
		return ""
	}
}
