package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/additivelens/additivelens/internal/catalog"
	"github.com/additivelens/additivelens/internal/model"
)

// DefaultBlobKey is the catalog document name used when none is configured
const DefaultBlobKey = "additives.yaml"

var errInvalidKey = errors.New("invalid blob key")

// BlobSource reads the catalog document from Azure Blob Storage
type BlobSource struct {
	client    *azblob.Client
	container string
	key       string
	logger    *slog.Logger
}

// NewBlobSource creates a blob source from a connection string
func NewBlobSource(cfg model.BlobConfig, logger *slog.Logger) (*BlobSource, error) {
	if cfg.ConnectionString == "" || cfg.Container == "" {
		return nil, fmt.Errorf("catalog.blob.connection_string and catalog.blob.container are required")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultBlobKey
	}
	if err := validateKey(cfg.Key); err != nil {
		return nil, err
	}

	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &BlobSource{
		client:    client,
		container: cfg.Container,
		key:       cfg.Key,
		logger:    logger.With("system", "storage"),
	}, nil
}

// Name returns the source name
func (s *BlobSource) Name() string { return KindBlob }

// FetchAll downloads and decodes the catalog document
func (s *BlobSource) FetchAll(ctx context.Context) ([]model.AdditiveEntry, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, s.container, s.key)
		}
		return nil, fmt.Errorf("download blob %s: %w", s.key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", s.key, err)
	}

	entries, err := catalog.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("blob %s: %w", s.key, err)
	}

	s.logger.Debug("catalog blob downloaded", "key", s.key, "bytes", len(data))
	return entries, nil
}

func validateKey(key string) error {
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", errInvalidKey, key)
	}
	return nil
}
