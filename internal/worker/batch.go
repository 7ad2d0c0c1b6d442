package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/additivelens/additivelens/internal/model"
)

// maxLineBytes bounds a single text line; OCR dumps can be long
const maxLineBytes = 1 << 20

// Searcher searches one text for additives
type Searcher interface {
	Search(ctx context.Context, text string) []model.MatchResult
}

// SearchJob represents one text search
type SearchJob struct {
	Index    int
	Text     string
	Searcher Searcher
}

// Execute runs the search. A context that ends before or during the search
// is recorded as the result error.
func (j *SearchJob) Execute(ctx context.Context) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return &SearchResult{Index: j.Index, Text: j.Text, Results: []model.MatchResult{}, Error: err}
	}

	results := j.Searcher.Search(ctx, j.Text)
	if results == nil {
		results = []model.MatchResult{}
	}

	return &SearchResult{
		Index:    j.Index,
		Text:     j.Text,
		Results:  results,
		Duration: time.Since(start),
		Error:    ctx.Err(),
	}
}

// SearchResult represents the result of a search job
type SearchResult struct {
	Index    int                 `json:"index"`
	Text     string              `json:"text"`
	Results  []model.MatchResult `json:"results"`
	Duration time.Duration       `json:"duration_ns"`
	Error    error               `json:"-"`
}

// GetError returns the error from the search result
func (r *SearchResult) GetError() error {
	return r.Error
}

// BatchSearcher searches many texts concurrently
type BatchSearcher struct {
	searcher    Searcher
	concurrency int
}

// NewBatchSearcher creates a new batch searcher
func NewBatchSearcher(searcher Searcher, concurrency int) *BatchSearcher {
	return &BatchSearcher{
		searcher:    searcher,
		concurrency: concurrency,
	}
}

// SearchTexts searches every text and returns one result per text in input
// order. Texts never reached because ctx ended carry ctx.Err().
func (b *BatchSearcher) SearchTexts(ctx context.Context, texts []string) []*SearchResult {
	if len(texts) == 0 {
		return []*SearchResult{}
	}

	jobs := make([]Job, len(texts))
	for i, text := range texts {
		jobs[i] = &SearchJob{Index: i, Text: text, Searcher: b.searcher}
	}

	pool := NewPool(ctx, b.concurrency)
	results := pool.Run(jobs)

	out := make([]*SearchResult, len(texts))
	for _, r := range results {
		sr := r.(*SearchResult)
		out[sr.Index] = sr
	}

	for i, sr := range out {
		if sr == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &SearchResult{Index: i, Text: texts[i], Results: []model.MatchResult{}, Error: err}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// SearchFile reads texts from a file and searches them concurrently
func (b *BatchSearcher) SearchFile(ctx context.Context, filePath string) ([]*SearchResult, error) {
	texts, err := ReadTextsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read texts: %w", err)
	}

	return b.SearchTexts(ctx, texts), nil
}

// ReadTextsFromFile reads texts from a file (one per line)
func ReadTextsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var texts []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			texts = append(texts, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return texts, nil
}

// Summary counts batch results
type Summary struct {
	Texts   int `json:"texts"`
	Matched int `json:"matched"`
	Failed  int `json:"failed"`
	Matches int `json:"matches"`
}

// Summarize counts texts with at least one match and failed searches
func Summarize(results []*SearchResult) Summary {
	s := Summary{Texts: len(results)}
	for _, r := range results {
		if r.Error != nil {
			s.Failed++
			continue
		}
		if len(r.Results) > 0 {
			s.Matched++
			s.Matches += len(r.Results)
		}
	}
	return s
}
