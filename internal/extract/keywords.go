// Package extract turns raw OCR text into a bounded, ranked list of candidate
// additive keywords.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/additivelens/additivelens/internal/normalize"
)

// DefaultMaxKeywords caps the extractor output for latency control
const DefaultMaxKeywords = 15

var (
	// quotes are dropped, brackets become delimiters so enclosed names stay separate
	quoteReplacer   = strings.NewReplacer(`"`, "", "'", "", "“", "", "”", "", "‘", "", "’", "", "`", "")
	bracketReplacer = strings.NewReplacer("(", ",", ")", ",", "[", ",", "]", ",", "{", ",", "}", ",", "<", ",", ">", ",", "「", ",", "」", ",", "【", ",", "】", ",")

	// horizontal whitespace only, newlines stay as delimiters
	horizontalSpace = regexp.MustCompile(`[^\S\n]+`)

	tokenDelimiters = regexp.MustCompile(`[,\n;:·•\-/|\s]+`)
)

// KeywordExtractor extracts candidate keywords from OCR text
type KeywordExtractor struct {
	strategies  []Strategy
	maxKeywords int
}

// NewKeywordExtractor creates an extractor running the given strategies in
// addition to delimiter tokenization. A non-positive maxKeywords uses the default.
func NewKeywordExtractor(maxKeywords int, strategies ...Strategy) *KeywordExtractor {
	if maxKeywords <= 0 {
		maxKeywords = DefaultMaxKeywords
	}
	return &KeywordExtractor{
		strategies:  strategies,
		maxKeywords: maxKeywords,
	}
}

// NewDefaultKeywordExtractor creates an extractor with every built-in strategy
func NewDefaultKeywordExtractor() *KeywordExtractor {
	return NewKeywordExtractor(DefaultMaxKeywords, DefaultStrategies()...)
}

// Extract returns de-duplicated keywords, longest first, capped at maxKeywords
func (e *KeywordExtractor) Extract(text string) []string {
	text = strings.ToValidUTF8(text, "")
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	cleaned := Clean(text)
	pool := newCandidatePool()

	for _, tok := range Tokenize(cleaned) {
		if normalize.RuneLen(tok) > 1 && !IsCommonWord(tok) {
			pool.add(tok)
		}
	}

	for _, s := range e.strategies {
		for _, kw := range s.Extract(text, cleaned) {
			pool.add(kw)
		}
	}

	return pool.ranked(e.maxKeywords)
}

// Clean applies OCR correction, lowercases, turns brackets into delimiters,
// drops quotes and collapses horizontal whitespace
func Clean(text string) string {
	text = normalize.CorrectOCRErrors(text)
	text = strings.ToLower(text)
	text = quoteReplacer.Replace(text)
	text = bracketReplacer.Replace(text)
	text = horizontalSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Tokenize splits cleaned text on the delimiter set
func Tokenize(cleaned string) []string {
	parts := tokenDelimiters.Split(cleaned, -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// candidatePool collects unique keywords from every extraction strategy
type candidatePool struct {
	seen  map[string]bool
	items []string
}

func newCandidatePool() *candidatePool {
	return &candidatePool{seen: make(map[string]bool)}
}

func (p *candidatePool) add(kw string) {
	kw = strings.TrimSpace(kw)
	if normalize.RuneLen(kw) <= 1 || p.seen[kw] {
		return
	}
	// punctuation, emoji and control characters only
	if normalize.Normalize(kw) == "" {
		return
	}
	p.seen[kw] = true
	p.items = append(p.items, kw)
}

// ranked sorts longest first, then lexically so equal-length keywords keep a
// deterministic order
func (p *candidatePool) ranked(limit int) []string {
	out := make([]string, len(p.items))
	copy(out, p.items)

	sort.SliceStable(out, func(i, j int) bool {
		li, lj := normalize.RuneLen(out[i]), normalize.RuneLen(out[j])
		if li != lj {
			return li > lj
		}
		return out[i] < out[j]
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
