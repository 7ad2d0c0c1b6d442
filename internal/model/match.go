package model

// MatchType classifies how a keyword matched a catalog entry
type MatchType string

const (
	MatchExact           MatchType = "exact"            // Case-insensitive literal equality
	MatchNormalizedExact MatchType = "normalized_exact" // Equal after normalization
	MatchPartial         MatchType = "partial"          // Substring in either direction
	MatchFuzzy           MatchType = "fuzzy"            // Character-set similarity
)

// MatchResult is a catalog entry annotated with match metadata for one search
type MatchResult struct {
	AdditiveEntry
	MatchType   MatchType `json:"match_type"`
	MatchScore  float64   `json:"match_score"`  // (0, 1], higher is more confident
	MatchedTerm string    `json:"matched_term"` // Keyword that produced the match
}
