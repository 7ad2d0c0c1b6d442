// Package search matches free text against the additive catalog and returns a
// bounded, deterministically ranked list of confident matches.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/additivelens/additivelens/internal/catalog"
	"github.com/additivelens/additivelens/internal/extract"
	"github.com/additivelens/additivelens/internal/model"
	"github.com/additivelens/additivelens/internal/score"
)

// Catalog supplies catalog snapshots; *catalog.Cache implements it
type Catalog interface {
	Get(ctx context.Context) (*catalog.Snapshot, error)
}

// Engine runs extraction, scoring and ranking over the cached catalog. It is
// safe for concurrent use.
type Engine struct {
	catalog   Catalog
	extractor *extract.KeywordExtractor
	scorer    *score.Scorer
	cfg       model.SearchConfig
	logger    *slog.Logger

	index atomic.Pointer[index]
}

// index holds the search terms of one catalog snapshot, prepared once
type index struct {
	version uint64
	entries []indexedEntry
}

type indexedEntry struct {
	entry model.AdditiveEntry
	terms []score.Term
}

// NewEngine creates a search engine over c
func NewEngine(c Catalog, cfg model.SearchConfig, logger *slog.Logger) (*Engine, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.MaxKeywords <= 0 || cfg.SearchKeywords <= 0 || cfg.ScoredKeywords <= 0 || cfg.MaxResults <= 0 {
		return nil, fmt.Errorf("search limits must be positive")
	}

	strategies, err := extract.StrategiesByName(cfg.Strategies)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		catalog:   c,
		extractor: extract.NewKeywordExtractor(cfg.MaxKeywords, strategies...),
		scorer:    score.NewScorer(cfg.Scoring),
		cfg:       cfg,
		logger:    logger.With("component", "search"),
	}, nil
}

// Keywords returns the keywords Search would consider for text, in order
func (e *Engine) Keywords(text string) []string {
	keywords := e.extractor.Extract(text)
	if len(keywords) > e.cfg.SearchKeywords {
		keywords = keywords[:e.cfg.SearchKeywords]
	}
	return keywords
}

// Search returns at most MaxResults matches for text, best first. It never
// fails: a catalog error, a cancelled context or an internal failure all
// yield an empty, non-nil slice.
func (e *Engine) Search(ctx context.Context, text string) (results []model.MatchResult) {
	start := time.Now()
	results = []model.MatchResult{}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("search failed", "panic", r, "stack", string(debug.Stack()))
			results = []model.MatchResult{}
		}
	}()

	if err := ctx.Err(); err != nil {
		return results
	}

	snap, err := e.catalog.Get(ctx)
	if err != nil {
		e.logger.Warn("catalog unavailable", "error", err)
		return results
	}
	idx := e.indexFor(snap)

	keywords := e.Keywords(text)
	scored := keywords
	if len(scored) > e.cfg.ScoredKeywords {
		scored = scored[:e.cfg.ScoredKeywords]
	}

	best := make(map[string]model.MatchResult)
	matches := 0

	for _, kw := range scored {
		if matches >= e.cfg.EarlyExitMatches && e.cfg.EarlyExitMatches > 0 {
			break
		}
		if ctx.Err() != nil {
			return []model.MatchResult{}
		}

		term := score.Prepare(kw)
		for _, h := range e.matchKeyword(term, idx) {
			matches++

			if prev, seen := best[h.entry.ID]; seen && prev.MatchScore >= h.match.Score {
				continue
			}
			best[h.entry.ID] = model.MatchResult{
				AdditiveEntry: h.entry,
				MatchType:     h.match.Type,
				MatchScore:    h.match.Score,
				MatchedTerm:   kw,
			}
		}
	}

	candidates := make([]model.MatchResult, 0, len(best))
	for _, r := range best {
		candidates = append(candidates, r)
	}
	results = Rank(candidates, e.cfg.MaxResults)

	e.logger.Debug("search complete",
		"keywords", len(keywords), "scored", len(scored), "matches", matches,
		"results", len(results), "catalog_version", snap.Version, "duration", time.Since(start))

	return results
}

type hit struct {
	entry model.AdditiveEntry
	match score.Match
}

// matchKeyword scores one keyword against every entry. An exact hit ends the
// scan and discards the weaker matches this keyword produced.
func (e *Engine) matchKeyword(term score.Term, idx *index) []hit {
	var hits []hit
	for i := range idx.entries {
		ie := &idx.entries[i]
		m, ok := e.scorer.CompareAll(term, ie.terms)
		if !ok {
			continue
		}
		if m.Type == model.MatchExact {
			return []hit{{entry: ie.entry, match: m}}
		}
		hits = append(hits, hit{entry: ie.entry, match: m})
	}
	return hits
}

// indexFor returns the prepared index of snap, building it on version change
func (e *Engine) indexFor(snap *catalog.Snapshot) *index {
	if idx := e.index.Load(); idx != nil && idx.version == snap.Version {
		return idx
	}

	idx := &index{
		version: snap.Version,
		entries: make([]indexedEntry, 0, len(snap.Entries)),
	}
	for _, entry := range snap.Entries {
		terms := entry.SearchTerms()
		ie := indexedEntry{entry: entry, terms: make([]score.Term, 0, len(terms))}
		for _, t := range terms {
			ie.terms = append(ie.terms, score.Prepare(t))
		}
		idx.entries = append(idx.entries, ie)
	}

	e.index.Store(idx)
	return idx
}
