package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/additivelens/additivelens/internal/catalog"
	"github.com/additivelens/additivelens/internal/model"
)

// staticCatalog serves fixed entries under a fixed version
type staticCatalog struct {
	snap *catalog.Snapshot
	err  error
}

func (c *staticCatalog) Get(context.Context) (*catalog.Snapshot, error) {
	return c.snap, c.err
}

func newStatic(entries ...model.AdditiveEntry) *staticCatalog {
	return &staticCatalog{snap: &catalog.Snapshot{Entries: entries, Version: 1, Origin: catalog.OriginLive}}
}

func testEntries() []model.AdditiveEntry {
	return []model.AdditiveEntry{
		{ID: "citric-acid", Name: "구연산", HazardLevel: model.HazardLow, Aliases: []string{}},
		{ID: "sodium-benzoate", Name: "안식향산나트륨", HazardLevel: model.HazardMedium, Aliases: []string{"벤조산나트륨"}},
		{ID: "yellow-5", Name: "황색 5호", HazardLevel: model.HazardHigh, Aliases: []string{"타르트라진"}},
		{ID: "carrageenan", Name: "카라기난", HazardLevel: model.HazardMedium, Aliases: []string{"E407"}},
		{ID: "guar-gum", Name: "구아검", HazardLevel: model.HazardLow, Aliases: []string{}},
	}
}

func newEngine(t *testing.T, c Catalog) *Engine {
	t.Helper()
	e, err := NewEngine(c, model.DefaultSearchConfig(), nil)
	require.NoError(t, err)
	return e
}

func findResult(results []model.MatchResult, id string) (model.MatchResult, bool) {
	for _, r := range results {
		if r.ID == id {
			return r, true
		}
	}
	return model.MatchResult{}, false
}

func TestSearch_ExactCatalogHit(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))

	results := e.Search(context.Background(), "구연산")

	r, ok := findResult(results, "citric-acid")
	require.True(t, ok, "expected citric-acid in %v", results)
	assert.Equal(t, model.MatchExact, r.MatchType)
	assert.Equal(t, 1.0, r.MatchScore)
	assert.Equal(t, "구연산", r.MatchedTerm)
}

func TestSearch_ExactPriorityOverNearMatches(t *testing.T) {
	entries := append(testEntries(),
		model.AdditiveEntry{ID: "citric-acid-2", Name: "구연산염", HazardLevel: model.HazardHigh},
	)
	e := newEngine(t, newStatic(entries...))

	results := e.Search(context.Background(), "구연산")
	require.NotEmpty(t, results)
	assert.Equal(t, "citric-acid", results[0].ID)
	assert.Equal(t, model.MatchExact, results[0].MatchType)
	assert.Len(t, results, 1, "an exact hit drops the keyword's near matches")
}

func TestSearch_ExactHitShortCircuitsKeyword(t *testing.T) {
	// the near matches come before the exact entry in catalog order
	e := newEngine(t, newStatic(
		model.AdditiveEntry{ID: "trisodium-citrate", Name: "구연산삼나트륨", HazardLevel: model.HazardLow},
		model.AdditiveEntry{ID: "citrate-salt", Name: "구연산염", HazardLevel: model.HazardHigh},
		model.AdditiveEntry{ID: "citric-acid", Name: "구연산", HazardLevel: model.HazardLow},
	))

	results := e.Search(context.Background(), "구연산")
	require.Len(t, results, 1)
	assert.Equal(t, "citric-acid", results[0].ID)
	assert.Equal(t, model.MatchExact, results[0].MatchType)
	assert.Equal(t, 1.0, results[0].MatchScore)

	// a keyword without an exact hit still collects every near match
	results = e.Search(context.Background(), "구연산나트륨")
	assert.Greater(t, len(results), 1)
}

func TestSearch_ExactHitSavesEarlyExitBudget(t *testing.T) {
	cfg := model.DefaultSearchConfig()
	cfg.EarlyExitMatches = 2
	e, err := NewEngine(newStatic(
		model.AdditiveEntry{ID: "citrate-salt", Name: "구연산염"},
		model.AdditiveEntry{ID: "trisodium-citrate", Name: "구연산삼나트륨"},
		model.AdditiveEntry{ID: "citric-acid", Name: "구연산"},
		model.AdditiveEntry{ID: "carrageenan", Name: "카라기난"},
	), cfg, nil)
	require.NoError(t, err)

	// 카라기난 and 구연산 each count one match, so both are scored
	results := e.Search(context.Background(), "구연산, 카라기난")
	_, citric := findResult(results, "citric-acid")
	_, carrageenan := findResult(results, "carrageenan")
	assert.True(t, citric)
	assert.True(t, carrageenan)
	assert.Len(t, results, 2)
}

func TestSearch_OCRGarbledHit(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))

	results := e.Search(context.Background(), "안식향산냐트륨")

	r, ok := findResult(results, "sodium-benzoate")
	require.True(t, ok, "expected sodium-benzoate in %v", results)
	assert.Contains(t, []model.MatchType{model.MatchNormalizedExact, model.MatchPartial, model.MatchFuzzy}, r.MatchType)
	assert.Greater(t, r.MatchScore, 0.5)
}

func TestSearch_NumberedAdditiveSplit(t *testing.T) {
	e := newEngine(t, newStatic(model.AdditiveEntry{ID: "yellow-5", Name: "황색 5호", HazardLevel: model.HazardHigh}))

	results := e.Search(context.Background(), "황색5호")

	r, ok := findResult(results, "yellow-5")
	require.True(t, ok, "expected yellow-5 in %v", results)
	assert.Equal(t, model.MatchNormalizedExact, r.MatchType)
}

func TestSearch_NoMatch(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))

	results := e.Search(context.Background(), "물, 소금, 설탕")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_DuplicateSuppression(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))

	results := e.Search(context.Background(), "구연산, 구연샨")

	count := 0
	for _, r := range results {
		if r.ID == "citric-acid" {
			count++
			assert.Equal(t, 1.0, r.MatchScore, "expected the higher score to win")
		}
	}
	assert.Equal(t, 1, count)
}

func TestSearch_IngredientLabel(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))

	label := "원재료명: 정제수, 설탕, 구연산, 안식향산나트륨(보존료), 황색5호, 증점제(구아 검)"
	results := e.Search(context.Background(), label)

	for _, id := range []string{"citric-acid", "sodium-benzoate", "yellow-5", "guar-gum"} {
		_, ok := findResult(results, id)
		assert.True(t, ok, "expected %s in %v", id, results)
	}
}

func TestSearch_BoundedOutput(t *testing.T) {
	var entries []model.AdditiveEntry
	for i := 0; i < 50; i++ {
		entries = append(entries, model.AdditiveEntry{
			ID:          strings.Repeat("x", i+1),
			Name:        "구연산" + strings.Repeat("가", i%5),
			HazardLevel: model.HazardLow,
		})
	}
	e := newEngine(t, newStatic(entries...))

	results := e.Search(context.Background(), "구연산, 구연산가, 구연산가가, 구연산가가가")
	assert.LessOrEqual(t, len(results), 8)
	assert.NotEmpty(t, results)
}

func TestSearch_MonotonicOrdering(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))

	inputs := []string{
		"구연산, 안식향산냐트륨, 황색5호, 카라기난",
		"안식향산, 구아, 황색",
		"구연산 카라기나 잔탄검 E407",
	}
	for _, in := range inputs {
		results := e.Search(context.Background(), in)
		for i := 1; i < len(results); i++ {
			prev, curr := results[i-1], results[i]
			assert.GreaterOrEqual(t, prev.MatchScore, curr.MatchScore, "input %q", in)
			if prev.MatchScore == curr.MatchScore {
				assert.LessOrEqual(t, prev.HazardLevel.Rank(), curr.HazardLevel.Rank(), "input %q", in)
			}
		}
	}
}

func TestSearch_HazardTieBreak(t *testing.T) {
	e := newEngine(t, newStatic(
		model.AdditiveEntry{ID: "a-low", Name: "가나다", HazardLevel: model.HazardLow},
		model.AdditiveEntry{ID: "b-unknown", Name: "사아자", HazardLevel: ""},
		model.AdditiveEntry{ID: "c-high", Name: "라마바", HazardLevel: model.HazardHigh},
		model.AdditiveEntry{ID: "d-medium", Name: "차카타", HazardLevel: model.HazardMedium},
	))

	results := e.Search(context.Background(), "가나다, 사아자, 라마바, 차카타")
	require.Len(t, results, 4)

	var ids []string
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"c-high", "d-medium", "a-low", "b-unknown"}, ids)
}

func TestSearch_Deterministic(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))
	text := "구연산, 안식향산냐트륨, 황색5호, 카라기난, 구아 검"

	first := e.Search(context.Background(), text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, e.Search(context.Background(), text))
	}
}

func TestSearch_NoThrow(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))

	inputs := []string{
		"",
		"   ",
		strings.Repeat("구연산 안식향산나트륨 ", 10000),
		strings.Repeat("가", 150000),
		"😀🎉🔥",
		"\x00\x01\x02\x7f",
		"\xff\xfe\xfd",
		"\u200b\u200b",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			results := e.Search(context.Background(), in)
			assert.NotNil(t, results)
			assert.LessOrEqual(t, len(results), 8)
		})
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := e.Search(ctx, "구연산")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_CatalogError(t *testing.T) {
	e := newEngine(t, &staticCatalog{err: errors.New("unavailable")})

	results := e.Search(context.Background(), "구연산")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

type panickingCatalog struct{}

func (panickingCatalog) Get(context.Context) (*catalog.Snapshot, error) {
	panic("corrupted catalog")
}

func TestSearch_RecoversPanic(t *testing.T) {
	e := newEngine(t, panickingCatalog{})

	var results []model.MatchResult
	assert.NotPanics(t, func() {
		results = e.Search(context.Background(), "구연산")
	})
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_EarlyExit(t *testing.T) {
	entries := []model.AdditiveEntry{
		{ID: "citric-acid", Name: "구연산", HazardLevel: model.HazardLow},
		{ID: "lactic-acid", Name: "젖산", HazardLevel: model.HazardLow},
	}

	cfg := model.DefaultSearchConfig()
	cfg.EarlyExitMatches = 1
	e, err := NewEngine(newStatic(entries...), cfg, nil)
	require.NoError(t, err)

	// 구연산 is scored first (longest) and already reaches the limit
	results := e.Search(context.Background(), "젖산, 구연산")
	require.Len(t, results, 1)
	assert.Equal(t, "citric-acid", results[0].ID)

	full := newEngine(t, newStatic(entries...))
	assert.Len(t, full.Search(context.Background(), "젖산, 구연산"), 2)
}

func TestSearch_ScoredKeywordCap(t *testing.T) {
	cfg := model.DefaultSearchConfig()
	cfg.ScoredKeywords = 1
	e, err := NewEngine(newStatic(testEntries()...), cfg, nil)
	require.NoError(t, err)

	// only the longest keyword is scored
	results := e.Search(context.Background(), "구연산, 안식향산나트륨")
	require.Len(t, results, 1)
	assert.Equal(t, "sodium-benzoate", results[0].ID)
}

func TestSearch_IndexFollowsCatalogVersion(t *testing.T) {
	c := newStatic(model.AdditiveEntry{ID: "citric-acid", Name: "구연산"})
	e := newEngine(t, c)

	require.Len(t, e.Search(context.Background(), "젖산"), 0)

	c.snap = &catalog.Snapshot{
		Entries: []model.AdditiveEntry{{ID: "lactic-acid", Name: "젖산"}},
		Version: 2,
	}
	results := e.Search(context.Background(), "젖산")
	require.Len(t, results, 1)
	assert.Equal(t, "lactic-acid", results[0].ID)
}

func TestSearch_Concurrent(t *testing.T) {
	e := newEngine(t, newStatic(testEntries()...))
	want := e.Search(context.Background(), "구연산, 황색5호")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, e.Search(context.Background(), "구연산, 황색5호"))
		}()
	}
	wg.Wait()
}

func TestSearch_WithCatalogCache(t *testing.T) {
	// the bundled catalog is served when the live source fails
	c := catalog.NewCache(catalog.SourceFunc(func(context.Context) ([]model.AdditiveEntry, error) {
		return nil, errors.New("store offline")
	}), catalog.Options{})
	e := newEngine(t, c)

	results := e.Search(context.Background(), "구연산, 황색5호")
	_, citric := findResult(results, "citric-acid")
	_, yellow := findResult(results, "yellow-5")
	assert.True(t, citric)
	assert.True(t, yellow)
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(nil, model.DefaultSearchConfig(), nil)
	assert.Error(t, err)

	cfg := model.DefaultSearchConfig()
	cfg.Strategies = []string{"soundex"}
	_, err = NewEngine(newStatic(), cfg, nil)
	assert.Error(t, err)

	cfg = model.DefaultSearchConfig()
	cfg.MaxResults = 0
	_, err = NewEngine(newStatic(), cfg, nil)
	assert.Error(t, err)
}

func TestKeywords(t *testing.T) {
	e := newEngine(t, newStatic())

	keywords := e.Keywords("구연산, 젖산, 카라기난, 잔탄검, 구아검, 대두레시틴, 아스파탐, 수크랄로스, 아세설팜칼륨, 카라멜색소")
	assert.Len(t, keywords, 8)
}
