package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/additivelens/additivelens/internal/model"
)

// Source fetches every active catalog entry. Implementations must return the
// full catalog on each call and keep ids stable across calls.
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]model.AdditiveEntry, error)
}

// SourceFunc adapts a plain function to the Source interface
type SourceFunc func(ctx context.Context) ([]model.AdditiveEntry, error)

// Name returns a generic source name
func (f SourceFunc) Name() string { return "func" }

// FetchAll calls f
func (f SourceFunc) FetchAll(ctx context.Context) ([]model.AdditiveEntry, error) { return f(ctx) }

//go:embed fallback.yaml
var fallbackYAML []byte

// Document is the on-disk catalog layout: either a bare list or an object with
// an "additives" key
type Document struct {
	Additives []model.AdditiveEntry `json:"additives" yaml:"additives"`
}

// DecodeYAML decodes a catalog document in YAML (or JSON, which is valid YAML)
func DecodeYAML(data []byte) ([]model.AdditiveEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []model.AdditiveEntry
		if err := yaml.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode catalog list: %w", err)
		}
		return list, nil
	}

	var doc Document
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog document: %w", err)
	}
	return doc.Additives, nil
}

// FallbackSource serves the bundled offline catalog. It never fails.
type FallbackSource struct {
	entries []model.AdditiveEntry
}

// NewFallbackSource parses the bundled catalog
func NewFallbackSource() *FallbackSource {
	entries, err := DecodeYAML(fallbackYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: bundled fallback is invalid: %v", err))
	}
	return &FallbackSource{entries: entries}
}

// Name returns the source name
func (s *FallbackSource) Name() string { return "fallback" }

// FetchAll returns a copy of the bundled entries
func (s *FallbackSource) FetchAll(_ context.Context) ([]model.AdditiveEntry, error) {
	out := make([]model.AdditiveEntry, len(s.entries))
	for i, e := range s.entries {
		e.Aliases = append([]string(nil), e.Aliases...)
		out[i] = e
	}
	return out, nil
}
