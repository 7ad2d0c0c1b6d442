package score

import (
	"math"
	"strings"

	"github.com/additivelens/additivelens/internal/model"
	"github.com/additivelens/additivelens/internal/normalize"
)

// Match is a typed match with its confidence
type Match struct {
	Type  model.MatchType
	Score float64
}

// Term is a keyword or catalog search term prepared for repeated comparison
type Term struct {
	Raw        string
	Lower      string
	Normalized string
	lowerLen   int
	normLen    int
	chars      map[rune]struct{}
}

// Prepare computes the comparison forms of s once
func Prepare(s string) Term {
	lower := strings.ToLower(strings.TrimSpace(s))
	normalized := normalize.Normalize(s)

	chars := make(map[rune]struct{}, len(normalized))
	for _, r := range normalized {
		chars[r] = struct{}{}
	}

	return Term{
		Raw:        s,
		Lower:      lower,
		Normalized: normalized,
		lowerLen:   normalize.RuneLen(lower),
		normLen:    normalize.RuneLen(normalized),
		chars:      chars,
	}
}

// Scorer compares keywords against catalog search terms
type Scorer struct {
	cfg model.ScoringConfig
}

// NewScorer creates a scorer with the given weights and thresholds
func NewScorer(cfg model.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// NewDefaultScorer creates a scorer with the tuned default constants
func NewDefaultScorer() *Scorer {
	return NewScorer(model.DefaultScoringConfig())
}

// ScoreMatch compares one keyword against one name or alias
func (s *Scorer) ScoreMatch(keyword, searchTerm string) (Match, bool) {
	return s.Compare(Prepare(keyword), Prepare(searchTerm))
}

// Compare applies the strategies in priority order (exact, normalized exact,
// partial, fuzzy); the first one clearing the global floor wins
func (s *Scorer) Compare(kw, term Term) (Match, bool) {
	// 1. Exact
	if kw.Lower != "" && kw.Lower == term.Lower {
		return Match{Type: model.MatchExact, Score: 1.0}, true
	}

	if kw.Normalized == "" || term.Normalized == "" {
		return Match{}, false
	}

	// 2. Normalized exact, guarded against trivially short forms
	if kw.Normalized == term.Normalized && kw.normLen > s.cfg.NormalizedExactMinLen {
		return Match{Type: model.MatchNormalizedExact, Score: s.cfg.NormalizedExactScore}, true
	}

	// 3. Partial
	if score, ok := s.partial(kw, term); ok && score > s.cfg.MinScore {
		return Match{Type: model.MatchPartial, Score: score}, true
	}

	// 4. Fuzzy
	if score, ok := s.fuzzy(kw, term); ok && score > s.cfg.MinScore {
		return Match{Type: model.MatchFuzzy, Score: score}, true
	}

	return Match{}, false
}

// CompareAll returns the best match of kw across all terms of one entry.
// An exact hit ends the scan immediately.
func (s *Scorer) CompareAll(kw Term, terms []Term) (Match, bool) {
	var best Match
	found := false

	for _, term := range terms {
		m, ok := s.Compare(kw, term)
		if !ok {
			continue
		}
		if !found || m.Score > best.Score {
			best = m
			found = true
		}
		if m.Type == model.MatchExact {
			break
		}
	}

	return best, found
}

// partial scores substring containment in either direction, on the raw
// lowercase forms first and the normalized forms second:
// min(cap, shorter/longer * weight)
func (s *Scorer) partial(kw, term Term) (float64, bool) {
	shorter, longer := 0, 0

	switch {
	case kw.Lower != "" && term.Lower != "" &&
		(strings.Contains(term.Lower, kw.Lower) || strings.Contains(kw.Lower, term.Lower)):
		shorter, longer = minMax(kw.lowerLen, term.lowerLen)
	case strings.Contains(term.Normalized, kw.Normalized) || strings.Contains(kw.Normalized, term.Normalized):
		shorter, longer = minMax(kw.normLen, term.normLen)
	default:
		return 0, false
	}

	if longer == 0 {
		return 0, false
	}

	ratio := float64(shorter) / float64(longer)
	return math.Min(s.cfg.PartialCap, ratio*s.cfg.PartialWeight), true
}

// fuzzy scores character-set Jaccard similarity on normalized forms plus a
// substring bonus; accepted similarity is scaled by the fuzzy weight
func (s *Scorer) fuzzy(kw, term Term) (float64, bool) {
	sim := Jaccard(kw.chars, term.chars)
	if strings.Contains(term.Normalized, kw.Normalized) || strings.Contains(kw.Normalized, term.Normalized) {
		sim = math.Min(1.0, sim+s.cfg.FuzzySubstringBonus)
	}

	threshold := s.cfg.FuzzyShortThreshold
	if kw.normLen > s.cfg.FuzzyLongKeywordLen {
		threshold = s.cfg.FuzzyLongThreshold
	}

	if sim < threshold {
		return 0, false
	}
	return sim * s.cfg.FuzzyWeight, true
}

// Jaccard returns |a ∩ b| / |a ∪ b| over character sets
func Jaccard(a, b map[rune]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for r := range small {
		if _, ok := large[r]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// StringJaccard computes Jaccard similarity of the normalized forms of a and b
func StringJaccard(a, b string) float64 {
	return Jaccard(Prepare(a).chars, Prepare(b).chars)
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
