package model

import "time"

// ScanReport is the result of one OCR + search run over a label image
type ScanReport struct {
	ID        string        `json:"id"`
	ScannedAt time.Time     `json:"scanned_at"`
	OCR       OCRMeta       `json:"ocr"`
	Text      string        `json:"text"`    // Raw OCR text
	Results   []MatchResult `json:"results"` // Always non-nil, possibly empty
	Error     string        `json:"error,omitempty"`
}

// OCRMeta describes the recognizer call that produced the text
type OCRMeta struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Bytes    int           `json:"bytes"`
}

// HighestHazard returns the most severe hazard level among the results.
// It returns "" when there are no results with a known level.
func (r *ScanReport) HighestHazard() HazardLevel {
	best := HazardLevel("")
	for _, res := range r.Results {
		if res.HazardLevel.Valid() && res.HazardLevel.Rank() < best.Rank() {
			best = res.HazardLevel
		}
	}
	return best
}
