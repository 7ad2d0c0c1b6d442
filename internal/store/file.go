package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/additivelens/additivelens/internal/catalog"
	"github.com/additivelens/additivelens/internal/model"
)

// FileSource reads the catalog from a YAML or JSON document on disk, either a
// bare list of entries or an object with an "additives" list
type FileSource struct {
	path string
}

// NewFileSource creates a file source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the source name
func (s *FileSource) Name() string { return KindFile }

// Path returns the catalog file path
func (s *FileSource) Path() string { return s.path }

// FetchAll reads and decodes the whole file
func (s *FileSource) FetchAll(ctx context.Context) ([]model.AdditiveEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	entries, err := catalog.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return entries, nil
}
