package catalog

import (
	"log/slog"
	"strings"

	"github.com/additivelens/additivelens/internal/model"
)

// Sanitize drops entries without an id, keeps the first of duplicate ids,
// trims names and aliases, and clears unknown hazard levels so they sort last
func Sanitize(entries []model.AdditiveEntry, logger *slog.Logger) []model.AdditiveEntry {
	if logger == nil {
		logger = slog.Default()
	}

	out := make([]model.AdditiveEntry, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for i, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		e.Name = strings.TrimSpace(e.Name)

		if e.ID == "" {
			logger.Warn("dropping catalog entry without id", "index", i, "name", e.Name)
			continue
		}
		if seen[e.ID] {
			logger.Warn("dropping duplicate catalog entry", "id", e.ID)
			continue
		}
		seen[e.ID] = true

		if level, ok := model.ParseHazardLevel(string(e.HazardLevel)); ok {
			e.HazardLevel = level
		} else {
			if e.HazardLevel != "" {
				logger.Warn("unknown hazard level", "id", e.ID, "hazard_level", e.HazardLevel)
			}
			e.HazardLevel = ""
		}

		aliases := make([]string, 0, len(e.Aliases))
		for _, a := range e.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		e.Aliases = aliases

		out = append(out, e)
	}

	return out
}
