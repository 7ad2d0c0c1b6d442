package model

import "strings"

// AdditiveEntry is a catalog record for a single food additive
type AdditiveEntry struct {
	ID               string      `json:"id" yaml:"id"`                                                   // Stable unique identifier
	Name             string      `json:"name" yaml:"name"`                                               // Canonical display name (primary search key)
	HazardLevel      HazardLevel `json:"hazard_level" yaml:"hazard_level"`                               // low, medium, high
	DescriptionShort string      `json:"description_short,omitempty" yaml:"description_short,omitempty"` // Not used by matching
	DescriptionFull  string      `json:"description_full,omitempty" yaml:"description_full,omitempty"`   // Not used by matching
	Aliases          []string    `json:"aliases" yaml:"aliases"`                                         // Synonyms, E-numbers, codes
}

// SearchTerms returns the name followed by every alias, in catalog order
func (a AdditiveEntry) SearchTerms() []string {
	terms := make([]string, 0, len(a.Aliases)+1)
	terms = append(terms, a.Name)
	return append(terms, a.Aliases...)
}

// HazardLevel is the ordinal risk classification of an additive
type HazardLevel string

const (
	HazardLow    HazardLevel = "low"
	HazardMedium HazardLevel = "medium"
	HazardHigh   HazardLevel = "high"
)

// Rank orders hazard levels by severity: high first, unknown last
func (h HazardLevel) Rank() int {
	switch h {
	case HazardHigh:
		return 0
	case HazardMedium:
		return 1
	case HazardLow:
		return 2
	default:
		return 3
	}
}

// Valid reports whether h is one of the known levels
func (h HazardLevel) Valid() bool {
	return h.Rank() < 3
}

// ParseHazardLevel parses a hazard level case-insensitively.
// Unknown values yield "" and false.
func ParseHazardLevel(s string) (HazardLevel, bool) {
	h := HazardLevel(strings.ToLower(strings.TrimSpace(s)))
	if !h.Valid() {
		return "", false
	}
	return h, true
}
