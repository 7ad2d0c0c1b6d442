package score

import (
	"math"
	"testing"

	"github.com/additivelens/additivelens/internal/model"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestScorer_Exact(t *testing.T) {
	scorer := NewDefaultScorer()

	tests := []struct {
		keyword string
		term    string
	}{
		{"구연산", "구연산"},
		{"Citric Acid", "citric acid"},
		{"E211", "e211"},
	}

	for _, tt := range tests {
		m, ok := scorer.ScoreMatch(tt.keyword, tt.term)
		if !ok {
			t.Fatalf("Expected match for %q vs %q", tt.keyword, tt.term)
		}
		if m.Type != model.MatchExact || m.Score != 1.0 {
			t.Errorf("Expected exact 1.0 for %q vs %q, got %s %.3f", tt.keyword, tt.term, m.Type, m.Score)
		}
	}
}

func TestScorer_NormalizedExact(t *testing.T) {
	scorer := NewDefaultScorer()

	tests := []struct {
		keyword string
		term    string
	}{
		{"황색5호", "황색 5호"},
		{"E-211", "E211"},
		{"구아 검", "구아검"},
		{"안식향산·나트륨", "안식향산나트륨"},
	}

	for _, tt := range tests {
		m, ok := scorer.ScoreMatch(tt.keyword, tt.term)
		if !ok {
			t.Fatalf("Expected match for %q vs %q", tt.keyword, tt.term)
		}
		if m.Type != model.MatchNormalizedExact || !approxEqual(m.Score, 0.95) {
			t.Errorf("Expected normalized_exact 0.95 for %q vs %q, got %s %.3f", tt.keyword, tt.term, m.Type, m.Score)
		}
	}
}

func TestScorer_NormalizedExactShortGuard(t *testing.T) {
	scorer := NewDefaultScorer()

	// normalized forms equal but only 2 runes long: falls through to partial
	m, ok := scorer.ScoreMatch("a-b", "ab")
	if !ok {
		t.Fatal("Expected a match")
	}
	if m.Type == model.MatchNormalizedExact {
		t.Errorf("Expected short keyword not to match as normalized_exact, got %.3f", m.Score)
	}
	if m.Type != model.MatchPartial || !approxEqual(m.Score, 0.85) {
		t.Errorf("Expected partial 0.85, got %s %.3f", m.Type, m.Score)
	}
}

func TestScorer_Partial(t *testing.T) {
	scorer := NewDefaultScorer()

	// 4 of 7 runes: 4/7 * 0.85
	m, ok := scorer.ScoreMatch("안식향산", "안식향산나트륨")
	if !ok {
		t.Fatal("Expected partial match")
	}
	if m.Type != model.MatchPartial {
		t.Errorf("Expected partial, got %s", m.Type)
	}
	if want := 4.0 / 7.0 * 0.85; !approxEqual(m.Score, want) {
		t.Errorf("Expected score %.4f, got %.4f", want, m.Score)
	}

	// either direction
	m, ok = scorer.ScoreMatch("안식향산나트륨", "안식향산")
	if !ok || m.Type != model.MatchPartial {
		t.Errorf("Expected partial match in reverse direction, got %v %s", ok, m.Type)
	}
}

func TestScorer_PartialCapped(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	cfg.PartialWeight = 2.0
	scorer := NewScorer(cfg)

	m, ok := scorer.ScoreMatch("카라기난", "카라기난류")
	if !ok {
		t.Fatal("Expected match")
	}
	if m.Type != model.MatchPartial || !approxEqual(m.Score, cfg.PartialCap) {
		t.Errorf("Expected partial score capped at %.2f, got %s %.3f", cfg.PartialCap, m.Type, m.Score)
	}
}

func TestScorer_PartialBelowFloorFallsThrough(t *testing.T) {
	scorer := NewDefaultScorer()

	// 2 of 20 runes: partial 0.085 is below the floor, fuzzy also fails
	_, ok := scorer.ScoreMatch("나트", "안식향산나트륨안식향산나트륨안식향산나")
	if ok {
		t.Error("Expected tiny substring in a long name to be rejected")
	}
}

func TestScorer_Fuzzy(t *testing.T) {
	scorer := NewDefaultScorer()

	// one-syllable OCR substitution: 6 shared of 8 distinct runes
	m, ok := scorer.ScoreMatch("안식향산냐트륨", "안식향산나트륨")
	if !ok {
		t.Fatal("Expected fuzzy match")
	}
	if m.Type != model.MatchFuzzy {
		t.Errorf("Expected fuzzy, got %s", m.Type)
	}
	if want := 0.75 * 0.7; !approxEqual(m.Score, want) {
		t.Errorf("Expected score %.4f, got %.4f", want, m.Score)
	}
	if m.Score <= 0.5 {
		t.Errorf("Expected garbled match above 0.5, got %.3f", m.Score)
	}
}

func TestScorer_FuzzyShortKeywordThreshold(t *testing.T) {
	scorer := NewDefaultScorer()

	// 3-rune keywords need similarity >= 0.5: 2 shared of 4 distinct passes
	m, ok := scorer.ScoreMatch("구연샨", "구연산")
	if !ok {
		t.Fatal("Expected short fuzzy match at the threshold")
	}
	if !approxEqual(m.Score, 0.5*0.7) {
		t.Errorf("Expected score 0.35, got %.4f", m.Score)
	}

	// 1 shared of 5 distinct fails
	if _, ok := scorer.ScoreMatch("구쳔샨", "구연산"); ok {
		t.Error("Expected low-similarity short keyword to be rejected")
	}
}

func TestScorer_ConfigurableThresholds(t *testing.T) {
	cfg := model.DefaultScoringConfig()
	cfg.FuzzyShortThreshold = 0.9
	scorer := NewScorer(cfg)

	if _, ok := scorer.ScoreMatch("구연샨", "구연산"); ok {
		t.Error("Expected stricter threshold to reject the match")
	}
}

func TestScorer_NoMatch(t *testing.T) {
	scorer := NewDefaultScorer()

	tests := []struct {
		keyword string
		term    string
	}{
		{"물", "구연산"},
		{"소금", "안식향산나트륨"},
		{"", "구연산"},
		{"😀", "구연산"},
		{"구연산", ""},
	}

	for _, tt := range tests {
		if m, ok := scorer.ScoreMatch(tt.keyword, tt.term); ok {
			t.Errorf("Expected no match for %q vs %q, got %s %.3f", tt.keyword, tt.term, m.Type, m.Score)
		}
	}
}

func TestScorer_ScoreBounds(t *testing.T) {
	scorer := NewDefaultScorer()

	pairs := [][2]string{
		{"구연산", "구연산"},
		{"황색5호", "황색 5호"},
		{"안식향산", "안식향산나트륨"},
		{"안식향산냐트륨", "안식향산나트륨"},
		{"타르트라진", "타르트라진색소"},
	}

	for _, p := range pairs {
		m, ok := scorer.ScoreMatch(p[0], p[1])
		if !ok {
			continue
		}
		if m.Score <= 0.2 || m.Score > 1.0 {
			t.Errorf("Score out of range for %q vs %q: %.3f", p[0], p[1], m.Score)
		}
	}
}

func TestScorer_CompareAll(t *testing.T) {
	scorer := NewDefaultScorer()

	terms := []Term{
		Prepare("안식향산나트륨"),
		Prepare("벤조산나트륨"),
		Prepare("E211"),
	}

	m, ok := scorer.CompareAll(Prepare("벤조산나트륨"), terms)
	if !ok {
		t.Fatal("Expected alias match")
	}
	if m.Type != model.MatchExact {
		t.Errorf("Expected best match to be exact, got %s", m.Type)
	}

	m, ok = scorer.CompareAll(Prepare("e-211"), terms)
	if !ok || m.Type != model.MatchNormalizedExact {
		t.Errorf("Expected normalized_exact via alias, got %v %s", ok, m.Type)
	}

	if _, ok := scorer.CompareAll(Prepare("설탕"), terms); ok {
		t.Error("Expected no match for unrelated keyword")
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1.0},
		{"abc", "def", 0.0},
		{"ab", "bc", 1.0 / 3.0},
		{"aab", "ab", 1.0},
		{"", "", 0.0},
	}

	for _, tt := range tests {
		if got := StringJaccard(tt.a, tt.b); !approxEqual(got, tt.want) {
			t.Errorf("StringJaccard(%q, %q) = %.4f, want %.4f", tt.a, tt.b, got, tt.want)
		}
	}
}
