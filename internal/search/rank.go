package search

import (
	"sort"

	"github.com/additivelens/additivelens/internal/model"
)

// Rank sorts results by score descending, then hazard severity (high first,
// unknown last), then id, and truncates to limit. The id key makes the order
// total, so equal inputs always rank identically.
func Rank(results []model.MatchResult, limit int) []model.MatchResult {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if ra, rb := a.HazardLevel.Rank(), b.HazardLevel.Rank(); ra != rb {
			return ra < rb
		}
		return a.ID < b.ID
	})

	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
