package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/additivelens/additivelens/internal/normalize"
)

// Strategy is an extraction heuristic contributing extra candidates to the
// keyword pool. original is the untouched input, cleaned is the output of Clean.
type Strategy interface {
	Name() string
	Extract(original, cleaned string) []string
}

// Built-in strategy names, usable from configuration
const (
	StrategyHangulRuns    = "hangul_runs"
	StrategyNumbered      = "numbered"
	StrategySpaceCollapse = "space_collapse"
)

// DefaultStrategies returns every built-in strategy, tuned for Korean labels
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewHangulRunStrategy(),
		NewNumberedAdditiveStrategy(),
		NewSpaceCollapseStrategy(),
	}
}

// StrategiesByName resolves configured strategy names
func StrategiesByName(names []string) ([]Strategy, error) {
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case StrategyHangulRuns:
			strategies = append(strategies, NewHangulRunStrategy())
		case StrategyNumbered:
			strategies = append(strategies, NewNumberedAdditiveStrategy())
		case StrategySpaceCollapse:
			strategies = append(strategies, NewSpaceCollapseStrategy())
		default:
			return nil, fmt.Errorf("unknown extraction strategy: %s (supported: %s, %s, %s)",
				name, StrategyHangulRuns, StrategyNumbered, StrategySpaceCollapse)
		}
	}
	return strategies, nil
}

// HangulRunStrategy recovers maximal runs of Hangul syllables straight from
// the original text, bypassing delimiter splitting
type HangulRunStrategy struct {
	pattern *regexp.Regexp
}

// NewHangulRunStrategy creates the Hangul run strategy
func NewHangulRunStrategy() *HangulRunStrategy {
	return &HangulRunStrategy{pattern: regexp.MustCompile(`[가-힣]{2,}`)}
}

// Name returns the strategy name
func (s *HangulRunStrategy) Name() string { return StrategyHangulRuns }

// Extract returns Hangul runs that are not common words
func (s *HangulRunStrategy) Extract(original, _ string) []string {
	var out []string
	for _, run := range s.pattern.FindAllString(original, -1) {
		if !IsCommonWord(run) {
			out = append(out, run)
		}
	}
	return out
}

// NumberedAdditiveStrategy detects names like "황색5호" and emits the full
// match, its Hangul prefix and its number+suffix, since the catalog may store
// any of those forms
type NumberedAdditiveStrategy struct {
	pattern *regexp.Regexp
}

// NewNumberedAdditiveStrategy creates the numbered additive strategy
func NewNumberedAdditiveStrategy() *NumberedAdditiveStrategy {
	return &NumberedAdditiveStrategy{pattern: regexp.MustCompile(`([가-힣]+)(\d+)([가-힣]*)`)}
}

// Name returns the strategy name
func (s *NumberedAdditiveStrategy) Name() string { return StrategyNumbered }

// Extract returns numbered additive forms found in the cleaned text
func (s *NumberedAdditiveStrategy) Extract(_, cleaned string) []string {
	var out []string
	for _, m := range s.pattern.FindAllStringSubmatch(cleaned, -1) {
		full, prefix, digits, suffix := m[0], m[1], m[2], m[3]
		out = append(out, full)
		if normalize.RuneLen(prefix) > 1 && !IsCommonWord(prefix) {
			out = append(out, prefix)
		}
		if rest := digits + suffix; !IsCommonWord(rest) {
			out = append(out, rest)
		}
	}
	return out
}

// SpaceCollapseStrategy joins space-separated fragments such as "구아 검"
// into "구아검"
type SpaceCollapseStrategy struct {
	segments *regexp.Regexp
	maxWords int
	maxRunes int
}

// NewSpaceCollapseStrategy creates the space collapse strategy
func NewSpaceCollapseStrategy() *SpaceCollapseStrategy {
	return &SpaceCollapseStrategy{
		segments: regexp.MustCompile(`[,\n;:·•\-/|]+`),
		maxWords: 3,
		maxRunes: 12,
	}
}

// Name returns the strategy name
func (s *SpaceCollapseStrategy) Name() string { return StrategySpaceCollapse }

// Extract returns collapsed compounds. A whole segment of up to maxWords words
// is collapsed, and inside longer segments adjacent pairs are collapsed when
// one side is a short fragment.
func (s *SpaceCollapseStrategy) Extract(_, cleaned string) []string {
	var out []string
	for _, seg := range s.segments.Split(cleaned, -1) {
		words := strings.Fields(seg)
		if len(words) < 2 {
			continue
		}

		if len(words) <= s.maxWords && s.collapsible(words) {
			out = append(out, strings.Join(words, ""))
		}

		for i := 0; i+1 < len(words); i++ {
			a, b := words[i], words[i+1]
			if normalize.RuneLen(a) > 2 && normalize.RuneLen(b) > 2 {
				continue
			}
			if s.collapsible([]string{a, b}) {
				out = append(out, a+b)
			}
		}
	}
	return out
}

func (s *SpaceCollapseStrategy) collapsible(words []string) bool {
	total := 0
	for _, w := range words {
		if normalize.Normalize(w) != w {
			return false
		}
		total += normalize.RuneLen(w)
	}
	return total <= s.maxRunes
}
